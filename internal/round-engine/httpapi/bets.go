package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dto"
)

func (a *API) placeSportsBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceSportsBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.EventID == "" || req.Market == "" || req.Selection == "" || req.OddValue <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	bet, err := a.Sports.Place(r.Context(), req.UserID, req.EventID, req.Market, req.Selection, req.StakeCents, req.OddValue)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

func (a *API) settleSportsBet(w http.ResponseWriter, r *http.Request) {
	betID := pathStr(r)
	var req dto.SettleBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	bet, err := a.Sports.Settle(r.Context(), betID, req.Status, req.WinAmountCents)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// bulkSettle nunca devolve erro de transporte por falha individual: cada id
// traz seu próprio resultado na lista
func (a *API) bulkSettle(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkSettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if len(req.BetIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "betIds required"})
		return
	}
	results := a.Sports.BulkSettle(r.Context(), req.BetIDs, req.Status)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
