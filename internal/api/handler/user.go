package handler

import (
	"errors"
	"net/http"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/users"
	"go.uber.org/zap"
)

type UserHandler struct {
	users *users.Directory
}

func NewUserHandler(dir *users.Directory) *UserHandler {
	return &UserHandler{users: dir}
}

// Register creates a wallet holder. Admins are only provisioned by seed.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[models.RegisterRequest](w, r)
	if !ok {
		return
	}

	user, err := h.users.Register(req.Name, req.Email, req.Password, domain.RoleUser)
	if err != nil {
		if errors.Is(err, users.ErrUserExists) {
			RespondError(w, r, http.StatusConflict, "user/already-exists", "a user with this email already exists")
			return
		}
		zap.L().Error("create user failed", zap.Error(err), zap.String("email", req.Email))
		RespondError(w, r, http.StatusInternalServerError, "user/create-failed", "Failed to create user")
		return
	}

	RespondJSON(w, http.StatusCreated, toUserModel(user))
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-token-claims", err.Error())
		return
	}
	user, err := h.users.Get(actorID)
	if err != nil {
		RespondError(w, r, http.StatusNotFound, "user/not-found", "user not found")
		return
	}
	RespondJSON(w, http.StatusOK, toUserModel(user))
}

func toUserModel(u users.User) models.User {
	return models.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
