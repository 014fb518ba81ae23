package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"loot-tracker/pkg/apperrors"

	"github.com/danielgtaylor/huma/v2"
)

// ErrorBody mirrors the shape huma uses for errors so raw chi routes answer the same way
type ErrorBody struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSONResponse sends a JSON response with the given data and status code
func JSONResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// ErrorResponse sends an error JSON response
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	JSONResponse(w, ErrorBody{
		Title:  http.StatusText(statusCode),
		Status: statusCode,
		Detail: message,
	}, statusCode)
}

// CreatedResponse sends a 201 created response
func CreatedResponse(w http.ResponseWriter, data interface{}) {
	JSONResponse(w, data, http.StatusCreated)
}

// WriteError answers a raw chi route with the status huma or the error taxonomy assigns to err
func WriteError(w http.ResponseWriter, err error) {
	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		ErrorResponse(w, statusErr.Error(), statusErr.GetStatus())
		return
	}
	status := apperrors.StatusCode(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
		ErrorResponse(w, "internal server error", status)
		return
	}
	ErrorResponse(w, err.Error(), status)
}
