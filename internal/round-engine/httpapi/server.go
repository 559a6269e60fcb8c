package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/admission"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/dto"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/settle"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/sportsbook"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ws"
)

// LiveFeed expõe o snapshot da rodada ativa mantido no Redis por qualquer
// instância do engine
type LiveFeed interface {
	Snapshot(ctx context.Context) (round.Tick, error)
}

// API expõe os endpoints administrativos e de jogo do motor de rodadas
type API struct {
	Log       *zap.Logger
	Sched     *round.Scheduler
	Rounds    *round.Postgres
	Dice      *dice.Postgres
	Admission *admission.Postgres
	Settle    *settle.Engine
	Ledger    *ledger.Postgres
	Sports    *sportsbook.Postgres
	Hub       *ws.Hub
	Live      LiveFeed // opcional; fallback de GET current entre instâncias
}

// Router retorna o roteador HTTP com todos os endpoints /v1
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/rounds/start", a.startRound)
	r.Post("/v1/rounds/crash", a.crashRound)
	r.Get("/v1/rounds/current", a.currentRound)
	r.Get("/v1/rounds", a.listRounds)
	r.Get("/v1/rounds/{id}", a.getRound)
	r.Get("/v1/rounds/{id}/bets", a.listRoundBets)
	r.Post("/v1/rounds/{id}/bets", a.placeRoundBet)
	r.Patch("/v1/rounds/{id}/change-outcome", a.changeRoundOutcome)
	r.Post("/v1/round-bets/{id}/cancel", a.cancelRoundBet)

	r.Post("/v1/games", a.createGame)
	r.Get("/v1/games/{id}", a.getGame)
	r.Post("/v1/games/{id}/bets", a.placeDiceBet)
	r.Patch("/v1/games/{id}/close", a.closeGame)
	r.Patch("/v1/games/{id}/select-winner", a.selectWinner)
	r.Patch("/v1/games/{id}/change-outcome", a.changeGameOutcome)

	r.Post("/v1/bets", a.placeSportsBet)
	r.Put("/v1/bets/bulk-settle", a.bulkSettle)
	r.Put("/v1/bets/{id}/settle", a.settleSportsBet)

	r.Post("/v1/wallet/deposit", a.deposit)
	r.Get("/v1/wallet", a.getWallet)
	r.Get("/v1/wallet/entries", a.walletEntries)

	r.Get("/ws", a.Hub.HandleWS)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr mapeia os erros sentinela do domínio pro status HTTP
func (a *API) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.Log.Error("request failed", zap.Error(err))
		writeJSON(w, status, dto.ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, round.ErrNotFound),
		errors.Is(err, round.ErrNoActiveRound),
		errors.Is(err, dice.ErrNotFound),
		errors.Is(err, sportsbook.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, admission.ErrBetNotFound):
		return http.StatusNotFound
	case errors.Is(err, round.ErrActiveRoundExists),
		errors.Is(err, settle.ErrAlreadySettled),
		errors.Is(err, sportsbook.ErrAlreadySettled),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, round.ErrBettingClosed),
		errors.Is(err, round.ErrIllegalTransition),
		errors.Is(err, dice.ErrBettingClosed),
		errors.Is(err, dice.ErrInvalidState),
		errors.Is(err, admission.ErrNotCancellable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, admission.ErrInvalidStake),
		errors.Is(err, admission.ErrInvalidCashout),
		errors.Is(err, sportsbook.ErrInvalidStake),
		errors.Is(err, round.ErrInvalidOverride),
		errors.Is(err, dice.ErrInvalidSide),
		errors.Is(err, settle.ErrWinnerRequired),
		errors.Is(err, sportsbook.ErrInvalidStatus),
		errors.Is(err, sportsbook.ErrWinAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// pathID extrai o {id} numérico da rota
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func pathStr(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))
	return page, pageSize
}
