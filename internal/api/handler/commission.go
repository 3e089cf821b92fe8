package handler

import (
	"net/http"

	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/service"
)

type CommissionHandler struct {
	wallets *service.WalletService
}

func NewCommissionHandler(wallets *service.WalletService) *CommissionHandler {
	return &CommissionHandler{wallets: wallets}
}

// List returns the commission book, optionally filtered by ?txnId=.
func (h *CommissionHandler) List(w http.ResponseWriter, r *http.Request) {
	book := h.wallets.Snapshot().Commissions
	entries := append([]ledger.CommissionEntry{}, book.Entries...)
	if txnID := r.URL.Query().Get("txnId"); txnID != "" {
		entries = append([]ledger.CommissionEntry{}, book.ForTxn(txnID)...)
	}
	RespondJSON(w, http.StatusOK, models.CommissionsResponse{Commissions: entries, Count: len(entries)})
}

func (h *CommissionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	book := h.wallets.Snapshot().Commissions
	RespondJSON(w, http.StatusOK, book.Summary())
}
