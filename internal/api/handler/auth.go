package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/users"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users    *users.Directory
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthHandler(dir *users.Directory, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthHandler{users: dir, tokenTTL: tokenTTL, now: time.Now}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := bind[models.LoginRequest](w, r)
	if !ok {
		return
	}

	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			RespondError(w, r, http.StatusUnauthorized, "auth/invalid-credentials", "invalid email or password")
			return
		}
		zap.L().Error("login failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "auth/login-failed", "failed to log in")
		return
	}

	token, expiresAt, err := middleware.IssueToken(user.ID, user.Role, h.tokenTTL, h.now())
	if err != nil {
		zap.L().Error("sign token failed", zap.Error(err), zap.String("user_id", user.ID))
		RespondError(w, r, http.StatusInternalServerError, "auth/token-failed", "Failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserModel(user),
	})
}
