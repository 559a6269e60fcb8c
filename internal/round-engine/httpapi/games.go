package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/dto"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/outcome"
)

func (a *API) createGame(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.Player1Name == "" || req.Player2Name == "" || req.PayoutMultiplier < 1.0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	g, err := a.Dice.Create(r.Context(), req.Player1Name, req.Player2Name, req.PayoutMultiplier)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.GameResponse{Game: *g, Options: []dice.SideSummary{}})
}

func (a *API) getGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid game id"})
		return
	}
	g, err := a.Dice.Get(r.Context(), id)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	resp, err := a.gameResponse(r, g)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) placeDiceBet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid game id"})
		return
	}
	var req dto.PlaceDiceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	bet, err := a.Admission.PlaceDiceBet(r.Context(), id, req.UserID, req.Side, req.StakeCents)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

// closeGame fecha as apostas; com apostas em um único lado o vencedor é
// auto-selecionado e o jogo fica aguardando confirmação do admin
func (a *API) closeGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid game id"})
		return
	}
	g, err := a.Dice.Close(r.Context(), id)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	resp, err := a.gameResponse(r, g)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// selectWinner liquida o jogo. Winner vazio confirma o lado auto-selecionado
// no fechamento; a recomendação de lucro nunca decide sozinha.
func (a *API) selectWinner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid game id"})
		return
	}
	var req dto.SelectWinnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.Winner != nil && !dice.ValidSide(*req.Winner) {
		a.writeErr(w, dice.ErrInvalidSide)
		return
	}
	g, sum, err := a.Settle.SettleDiceGame(r.Context(), id, req.Winner, req.DiceResult, req.AdminSetResult)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SelectWinnerResponse{Game: *g, Settlement: sum})
}

func (a *API) changeGameOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid game id"})
		return
	}
	var req dto.ChangeOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if !dice.ValidSide(req.NewWinner) {
		a.writeErr(w, dice.ErrInvalidSide)
		return
	}
	g, rev, sum, err := a.Settle.ResettleDiceGame(r.Context(), id, req.NewWinner, req.NewDiceResult)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ChangeOutcomeResponse{Game: *g, Reversal: rev, Settlement: sum})
}

// gameResponse monta a visão do jogo com os agregados por lado e, quando o
// jogo aguarda decisão, a recomendação de lucro pro admin
func (a *API) gameResponse(r *http.Request, g *dice.Game) (dto.GameResponse, error) {
	sums, err := a.Dice.SideSummaries(r.Context(), g.ID)
	if err != nil {
		return dto.GameResponse{}, err
	}
	resp := dto.GameResponse{Game: *g, Options: sums}

	if g.Status == dice.StatusClosed || g.Status == dice.StatusWaitingForAdmin {
		stakes := make([]outcome.SideStake, 0, len(sums))
		for _, s := range sums {
			stakes = append(stakes, outcome.SideStake{Side: s.Side, TotalCents: s.TotalBetCents})
		}
		if side, profit := outcome.Recommend(stakes, g.PayoutMultiplier); side != "" {
			resp.Recommendation = &dto.Recommendation{Side: side, ProfitCents: profit}
		}
	}
	return resp, nil
}
