package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"classtrade/internal/admin"
	"classtrade/internal/aigen"
	"classtrade/internal/auth"
	"classtrade/internal/game"
	"classtrade/internal/roster"
	"classtrade/internal/validate"
)

var errMissingToken = errors.New("missing bearer token")

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Message: strings.TrimSpace(message)})
}

// statusFor maps service errors to HTTP statuses. Zero means unknown.
func statusFor(err error) int {
	var missing *game.MissingPricesError
	var planErr *aigen.PlanError
	switch {
	case errors.Is(err, errMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrClassMismatch),
		errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrWrongRole),
		errors.Is(err, game.ErrClassEnded):
		return http.StatusForbidden
	case errors.Is(err, admin.ErrNotFound),
		errors.Is(err, game.ErrClassNotFound),
		errors.Is(err, game.ErrGuestNotFound),
		errors.Is(err, game.ErrStockNotFound),
		errors.Is(err, game.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, admin.ErrConflict),
		errors.Is(err, admin.ErrInUse),
		errors.Is(err, admin.ErrDuplicatePhone),
		errors.Is(err, game.ErrNicknameTaken):
		return http.StatusConflict
	case errors.As(err, &missing),
		errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientHoldings),
		errors.Is(err, game.ErrPriceMismatch),
		errors.Is(err, game.ErrPriceNotFound),
		errors.Is(err, game.ErrClassNotActive),
		errors.Is(err, game.ErrLastDay),
		errors.Is(err, game.ErrFirstDay),
		errors.Is(err, game.ErrNoNewsForDay),
		errors.Is(err, game.ErrNoStocks),
		errors.Is(err, admin.ErrDayOutOfRange),
		errors.Is(err, admin.ErrTotalDaysTooLow),
		errors.Is(err, admin.ErrUnknownStock),
		errors.Is(err, admin.ErrNewsClassMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrInvalidQuantity),
		errors.Is(err, game.ErrInvalidPrice),
		errors.Is(err, game.ErrAmountOverflow),
		errors.Is(err, game.ErrInvalidNickname),
		errors.Is(err, game.ErrInvalidPhone),
		errors.Is(err, admin.ErrInvalidStatus),
		errors.Is(err, roster.ErrEmpty),
		errors.Is(err, roster.ErrTooLarge),
		errors.Is(err, roster.ErrNoSheet):
		return http.StatusBadRequest
	case errors.Is(err, aigen.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &planErr),
		errors.Is(err, aigen.ErrEmptyOutput):
		return http.StatusBadGateway
	}
	return 0
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid input", Fields: verr.Fields})
		return
	}
	var bad *badRequestError
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, bad.Error())
		return
	}
	if status := statusFor(err); status != 0 {
		writeError(w, status, err.Error())
		return
	}
	s.log.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
