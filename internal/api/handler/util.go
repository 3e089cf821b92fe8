package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/api/problem"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their json name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseAmount(fl.Field().String())
		return err == nil
	})
	return v
}

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// bind decodes the JSON body into T and validates it. On failure the
// problem response has already been written.
func bind[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var value T
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		detail := "Invalid request body"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			detail = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
		}
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", detail)
		return value, false
	}

	if err := validate.Struct(value); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			RespondError(w, r, http.StatusBadRequest, "request/validation-failed", err.Error())
			return value, false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		problem.WriteDetails(w, r, problem.Details{
			Type:   problem.Type("request/validation-failed"),
			Status: http.StatusBadRequest,
			Detail: "Request validation failed",
			Errors: fields,
		})
		return value, false
	}
	return value, true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Value is too short (minimum %s)", fe.Param())
	case "max":
		return fmt.Sprintf("Value is too long (maximum %s)", fe.Param())
	case "email":
		return "Must be a valid email address"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "amount":
		return fmt.Sprintf("Must be a positive amount with at most %d decimal places", domain.MaxAmountScale)
	default:
		return "Invalid value"
	}
}

func requestActor(r *http.Request) (string, bool, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", false, errors.New("missing user in auth context")
	}
	return userID, middleware.UserRoleFromContext(r.Context()) == domain.RoleAdmin, nil
}

// canAccess reports whether the caller may read userID's data.
func canAccess(r *http.Request, userID string) bool {
	actorID, isAdmin, err := requestActor(r)
	if err != nil {
		return false
	}
	return isAdmin || actorID == userID
}

// respondLedgerError maps ledger and storage failures onto problem responses.
func respondLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *ledger.InsufficientFundsError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "ledger/not-found", err.Error())
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		RespondError(w, r, http.StatusConflict, "ledger/already-processed", err.Error())
	case errors.As(err, &insufficient):
		RespondError(w, r, http.StatusUnprocessableEntity, "ledger/insufficient-funds", err.Error())
	case errors.Is(err, ledger.ErrInvalidCommand):
		RespondError(w, r, http.StatusBadRequest, "ledger/invalid-command", err.Error())
	case errors.Is(err, repository.ErrNotMigrated):
		RespondError(w, r, http.StatusServiceUnavailable, "storage/not-migrated", "storage is not ready")
	default:
		zap.L().Error("ledger command failed", zap.Error(err), zap.String("path", r.URL.Path))
		RespondError(w, r, http.StatusInternalServerError, "ledger/command-failed", "failed to process request")
	}
}
