package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Response is the envelope of every JSON response.
type Response struct {
	Result        string      `json:"result"`
	Data          interface{} `json:"data,omitempty"`
	Code          string      `json:"code,omitempty"`
	Message       string      `json:"message,omitempty"`
	Details       interface{} `json:"details,omitempty"`
	CorrelationID string      `json:"correlationId"`
}

// WriteSuccess writes data with status 200.
func WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	WriteStatus(w, r, http.StatusOK, data)
}

// WriteStatus writes a success envelope with the given status.
func WriteStatus(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeResponse(w, status, &Response{
		Result:        "ok",
		Data:          data,
		CorrelationID: correlationID(r),
	})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	writeResponse(w, status, &Response{
		Result:        "error",
		Code:          code,
		Message:       message,
		Details:       details,
		CorrelationID: correlationID(r),
	})
}

// WriteErr maps err to its status and code and writes it.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	e := ToAPIError(err)
	WriteError(w, r, e.StatusCode, e.Code, e.Message, e.Details)
}

func writeResponse(w http.ResponseWriter, status int, response *Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// correlationID returns the request ID set by the router, or a fresh one.
func correlationID(r *http.Request) string {
	if r != nil {
		if id := middleware.GetReqID(r.Context()); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
