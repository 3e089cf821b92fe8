package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/ayo6706/wallet-ledger/internal/users"
	"github.com/go-chi/chi/v5"
)

type TransactionHandler struct {
	wallets *service.WalletService
	users   *users.Directory
}

func NewTransactionHandler(wallets *service.WalletService, dir *users.Directory) *TransactionHandler {
	return &TransactionHandler{wallets: wallets, users: dir}
}

// Deposit queues a deposit request for the caller.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	req, ok := bind[models.AmountRequest](w, r)
	if !ok {
		return
	}

	fr, err := h.wallets.RequestDeposit(r.Context(), actorID, req.Amount)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, fr)
}

// Withdraw queues a withdrawal request for the caller. Funds are checked
// when an admin approves it, not here.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	req, ok := bind[models.AmountRequest](w, r)
	if !ok {
		return
	}

	fr, err := h.wallets.RequestWithdrawal(r.Context(), actorID, req.Amount)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, fr)
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	req, ok := bind[models.TransferRequest](w, r)
	if !ok {
		return
	}
	if !h.users.Exists(req.ReceiverID) {
		RespondError(w, r, http.StatusNotFound, "transfer/receiver-not-found", "receiver not found")
		return
	}

	txn, err := h.wallets.Transfer(r.Context(), actorID, req.ReceiverID, req.Amount, domain.TxnType(req.Type))
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, txn)
}

func (h *TransactionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.wallets.Approve)
}

func (h *TransactionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.wallets.Reject)
}

type reviewFunc func(ctx context.Context, actorID, id string, kind domain.Kind) (ledger.Transaction, error)

func (h *TransactionHandler) review(w http.ResponseWriter, r *http.Request, fn reviewFunc) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	kind, ok := reviewKind(w, r)
	if !ok {
		return
	}

	txn, err := fn(r.Context(), actorID, chi.URLParam(r, "id"), kind)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, txn)
}

// reviewKind reads the optional queue hint from the body or the kind query
// parameter. An empty body is allowed.
func reviewKind(w http.ResponseWriter, r *http.Request) (domain.Kind, bool) {
	req := models.ReviewRequest{Kind: r.URL.Query().Get("kind")}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
			return "", false
		}
	}
	if err := validate.Struct(req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/validation-failed", "kind must be one of: deposit withdrawal transfer")
		return "", false
	}
	return domain.Kind(req.Kind), true
}

// Record books an already settled deposit or withdrawal on behalf of a user.
func (h *TransactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	req, ok := bind[models.RecordRequest](w, r)
	if !ok {
		return
	}

	txn, err := h.wallets.Record(r.Context(), actorID, domain.Kind(req.Action), req.UserID, req.Amount)
	if err != nil {
		respondLedgerError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, txn)
}

// ListForUser returns every transaction touching userId, oldest first.
func (h *TransactionHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canAccess(r, userID) {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "cannot read another user's transactions")
		return
	}
	txns := h.wallets.Snapshot().TransactionsFor(userID)
	RespondJSON(w, http.StatusOK, models.TransactionsResponse{Transactions: txns, Count: len(txns)})
}

func (h *TransactionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	txns := h.wallets.Snapshot().Transactions()
	RespondJSON(w, http.StatusOK, models.TransactionsResponse{Transactions: txns, Count: len(txns)})
}

func (h *TransactionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	state := h.wallets.Snapshot()
	RespondJSON(w, http.StatusOK, models.PendingResponse{
		Deposits:    state.PendingDeposits(),
		Withdrawals: state.PendingWithdrawals(),
		Transfers:   state.PendingTransfers(),
		Stats:       state.PendingStats(),
	})
}
