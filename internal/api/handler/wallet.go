package handler

import (
	"net/http"

	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/go-chi/chi/v5"
)

type WalletHandler struct {
	wallets *service.WalletService
}

func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GetWallet returns the balance and fund requests of a user. Unknown users
// read as an empty wallet.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canAccess(r, userID) {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "cannot read another user's wallet")
		return
	}

	state := h.wallets.Snapshot()
	deposits, withdrawals := state.RequestsFor(userID)
	RespondJSON(w, http.StatusOK, models.WalletResponse{
		UserID:             userID,
		Balance:            state.Balance(userID),
		PendingDeposits:    deposits,
		PendingWithdrawals: withdrawals,
		Stats:              state.UserStats(userID),
	})
}
