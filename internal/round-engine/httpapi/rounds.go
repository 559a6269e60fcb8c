package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dto"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
)

func (a *API) startRound(w http.ResponseWriter, r *http.Request) {
	rd, err := a.Sched.StartRound(r.Context())
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.RoundFrom(rd))
}

// crashRound encerra a rodada ativa; corpo vazio usa o crash point
// comprometido, multiplier no corpo é o override do admin
func (a *API) crashRound(w http.ResponseWriter, r *http.Request) {
	var req dto.CrashRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	rd, sum, err := a.Sched.CrashRound(r.Context(), req.Multiplier)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CrashRoundResponse{Round: dto.RoundFrom(rd), Settlement: sum})
}

func (a *API) currentRound(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Sched.Current()
	if err == round.ErrNoActiveRound && a.Live != nil {
		// a rodada ativa pode viver em outra instância; o snapshot do
		// Redis é a visão compartilhada do tick mais recente
		a.currentFromSnapshot(w, r)
		return
	}
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.writeCurrent(w, r, &snap.Round, snap.Multiplier, snap.ElapsedMs)
}

func (a *API) currentFromSnapshot(w http.ResponseWriter, r *http.Request) {
	tick, err := a.Live.Snapshot(r.Context())
	if err != nil {
		a.writeErr(w, err)
		return
	}
	rd, err := a.Rounds.Get(r.Context(), tick.RoundID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.writeCurrent(w, r, rd, tick.Multiplier, tick.ElapsedMs)
}

func (a *API) writeCurrent(w http.ResponseWriter, r *http.Request, rd *round.Round, multiplier float64, elapsedMs int64) {
	count, total, err := a.Rounds.BetStats(r.Context(), rd.ID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CurrentRoundResponse{
		Round:            dto.RoundFrom(rd),
		Multiplier:       multiplier,
		ElapsedMs:        elapsedMs,
		BetCount:         count,
		TotalStakedCents: total,
	})
}

func (a *API) listRounds(w http.ResponseWriter, r *http.Request) {
	status := round.State(r.URL.Query().Get("status"))
	if status == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "status query param required"})
		return
	}
	page, pageSize := pageParams(r)
	rounds, err := a.Rounds.ListByStatus(r.Context(), status, page, pageSize)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	items := make([]dto.Round, 0, len(rounds))
	for i := range rounds {
		items = append(items, dto.RoundFrom(&rounds[i]))
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[dto.Round]{Items: items, Page: page, PageSize: pageSize})
}

func (a *API) getRound(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid round id"})
		return
	}
	rd, err := a.Rounds.Get(r.Context(), id)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RoundFrom(rd))
}

func (a *API) listRoundBets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid round id"})
		return
	}
	page, pageSize := pageParams(r)
	bets, err := a.Rounds.ListBetsByRound(r.Context(), id, page, pageSize)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[round.Bet]{Items: bets, Page: page, PageSize: pageSize})
}

func (a *API) placeRoundBet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid round id"})
		return
	}
	var req dto.PlaceRoundBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	bet, err := a.Admission.PlaceRoundBet(r.Context(), id, req.UserID, req.StakeCents, req.CashoutMultiplier)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

func (a *API) cancelRoundBet(w http.ResponseWriter, r *http.Request) {
	betID := pathStr(r)
	if betID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bet id required"})
		return
	}
	bet, err := a.Admission.CancelRoundBet(r.Context(), betID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// changeRoundOutcome é a correção administrativa pós-liquidação: reverte os
// payouts anteriores e reliquida sob o novo multiplicador
func (a *API) changeRoundOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid round id"})
		return
	}
	var req dto.ChangeRoundOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.NewMultiplier < 1.0 {
		a.writeErr(w, round.ErrInvalidOverride)
		return
	}
	rd, rev, sum, err := a.Settle.ResettleCrashRound(r.Context(), id, req.NewMultiplier)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ChangeRoundOutcomeResponse{
		Round:      dto.RoundFrom(rd),
		Reversal:   rev,
		Settlement: sum,
	})
}
