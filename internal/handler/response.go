package handler

// RESPONSE ENVELOPES:
// Every API response has one of two shapes,
//
//	{"success": true,  "data": ..., "meta": {"pagination": {...}}}
//	{"success": false, "error": {"message": "...", "code": "NOT_FOUND", "details": [...]}}
//
// so the client can branch on "success" without looking at the status.
// Domain errors are mapped to a status and a code exactly once, in
// Responder.Error.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/query"
)

// maxBodyBytes bounds request bodies. Template payloads carry boilerplate
// for every file, so this is generous.
const maxBodyBytes = 4 << 20

type successResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Meta    any    `json:"meta,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// Responder writes the envelopes. With showInternal set, 500 responses
// carry the underlying error text in details; use it in development only.
type Responder struct {
	logger       *slog.Logger
	showInternal bool
}

func NewResponder(logger *slog.Logger, showInternal bool) *Responder {
	return &Responder{logger: logger, showInternal: showInternal}
}

// JSON sends data in a success envelope.
func (rs *Responder) JSON(w http.ResponseWriter, status int, data any) {
	rs.write(w, status, successResponse{Success: true, Data: data})
}

type listMeta struct {
	Pagination query.Pagination `json:"pagination"`
}

// List sends a page of items with its pagination block.
func (rs *Responder) List(w http.ResponseWriter, data any, page query.Pagination) {
	rs.write(w, http.StatusOK, successResponse{Success: true, Data: data, Meta: listMeta{Pagination: page}})
}

// Message sends a success envelope with a message and no data.
func (rs *Responder) Message(w http.ResponseWriter, message string) {
	rs.write(w, http.StatusOK, successResponse{Success: true, Message: message})
}

// Error maps err to its status and code and sends the error envelope.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Code: apperror.Code(err), Message: "Internal server error"}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		switch {
		case len(appErr.Details) > 0:
			body.Details = appErr.Details
		case appErr.Field != "":
			body.Details = []apperror.FieldError{{Field: appErr.Field, Message: appErr.Message}}
		}
	}

	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed",
			slog.String("requestID", chimiddleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		if status == http.StatusInternalServerError {
			body.Details = nil
			if rs.showInternal {
				body.Details = err.Error()
			}
		}
	}

	rs.write(w, status, errorResponse{Error: body})
}

func (rs *Responder) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; all that is left is to log it.
		rs.logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrUnavailable), errors.Is(err, apperror.ErrTimeout):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a single JSON value from the body into v. Malformed or
// oversized bodies become 400 INVALID_JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.BadRequest("INVALID_JSON", "Request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.BadRequest("INVALID_JSON", "Request body is too large")
		}
		return apperror.BadRequest("INVALID_JSON", "Invalid JSON in request body")
	}
	return nil
}

// NotFound answers routes that match nothing.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.Error(w, r, &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: "Route " + r.URL.Path + " not found",
	})
}

// MethodNotAllowed answers a known route with the wrong method.
func (rs *Responder) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rs.write(w, http.StatusMethodNotAllowed, errorResponse{Error: errorBody{
		Message: "Method " + r.Method + " not allowed on " + r.URL.Path,
		Code:    "METHOD_NOT_ALLOWED",
	}})
}

// writeJSON sends v without an envelope, for endpoints whose shape is
// fixed by outside consumers such as load balancers.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}
