package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/styleshop/storefront/internal/auth"
	"github.com/styleshop/storefront/internal/cart"
	"github.com/styleshop/storefront/internal/catalog"
	"github.com/styleshop/storefront/internal/checkout"
	"github.com/styleshop/storefront/internal/middleware"
	"github.com/styleshop/storefront/internal/services"
)

// errorResponse is the body of every non-2xx response. Fields is set for
// validation failures.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrValidation),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidVariant),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidFilter),
		errors.Is(err, auth.ErrInvalidRegistration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrAlreadySubmitted),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, services.ErrDuplicateOrder):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status it maps to. Internal errors are
// logged and hidden from the client.
func (a *App) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var verrs checkout.ValidationErrors
	if errors.As(err, &verrs) {
		body.Fields = verrs
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// decodeBody reads a JSON request body into v, rejecting unknown fields
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
