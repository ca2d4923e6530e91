package web

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/OneTus27/site/internal/forms"
	"github.com/OneTus27/site/internal/metrics"
)

// User-facing error messages.
const (
	msgRateLimit       = "Too many requests. Please try again later."
	msgPrivacyRequired = "You must consent to the processing of personal data"
	msgInvalidForm     = "Invalid form data"
	msgSubmitFailed    = "Failed to submit the request"
	msgOrderFailed     = "Failed to submit the order"
	msgInternal        = "Internal server error"
)

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	allowed, err := s.limiter.Allow(ctx, clientIP(r))
	if err != nil {
		// Fail open: a broken limiter backend must not take the form down.
		s.log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
		allowed = true
	}
	if !allowed {
		metrics.IncFormSubmission("feedback", "rate_limited")
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: msgRateLimit})
		return
	}

	if err := r.ParseForm(); err != nil {
		metrics.IncFormSubmission("feedback", "invalid")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgInvalidForm})
		return
	}
	if r.PostFormValue("privacy") == "" {
		metrics.IncFormSubmission("feedback", "invalid")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgPrivacyRequired})
		return
	}

	form := forms.ParseFeedback(r.PostForm)
	if msgs := forms.ValidateFeedback(form); len(msgs) > 0 {
		metrics.IncFormSubmission("feedback", "invalid")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: strings.Join(msgs, " ")})
		return
	}

	if !s.bot.SendMessage(ctx, forms.FeedbackMessage(form, time.Now())) {
		metrics.IncFormSubmission("feedback", "delivery_failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgSubmitFailed})
		return
	}
	metrics.IncFormSubmission("feedback", "accepted")
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := forms.ParseOrder(r.Body)
	if err != nil {
		metrics.IncFormSubmission("order", "invalid")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgInternal})
		return
	}
	if err := forms.ValidateOrder(order); err != nil {
		metrics.IncFormSubmission("order", "invalid")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	if !s.bot.SendMessage(ctx, forms.OrderMessage(order, time.Now())) {
		metrics.IncFormSubmission("order", "delivery_failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgOrderFailed})
		return
	}
	metrics.IncFormSubmission("order", "accepted")
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

type updatePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
		writeJSON(w, http.StatusBadRequest, statusBody{Status: "error", Message: "Invalid request data"})
		return
	}

	if err := s.bot.UpdatePassword(req.NewPassword); err != nil {
		writeJSON(w, http.StatusInternalServerError, statusBody{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusBody{
		Status:  "success",
		Message: "Password updated. All recipients must re-authorize.",
	})
}

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	Success bool `json:"success"`
}

type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP keys the rate limiter. RealIP middleware already resolved proxy
// headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
