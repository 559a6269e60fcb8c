package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dto"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
)

func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	ref := req.ExternalRef
	if ref == "" {
		ref = uuid.NewString()
	}

	walletID, _, err := a.Ledger.GetOrCreateWallet(r.Context(), req.UserID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	balance, err := a.Ledger.Deposit(r.Context(), req.UserID, req.AmountCents, ref)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: req.UserID, WalletID: walletID, BalanceCents: balance})
}

func (a *API) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId query param required"})
		return
	}
	walletID, balance, err := a.Ledger.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, WalletID: walletID, BalanceCents: balance})
}

// walletEntries devolve o extrato append-only do usuário, mais recente primeiro
func (a *API) walletEntries(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId query param required"})
		return
	}
	page, pageSize := pageParams(r)
	entries, err := a.Ledger.EntriesByUser(r.Context(), userID, page, pageSize)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[ledger.Entry]{Items: entries, Page: page, PageSize: pageSize})
}
