package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// rateRequest is one observation. A missing timestamp means now.
type rateRequest struct {
	Currency  string    `json:"currency"`
	Rate      float64   `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
}

// handleRecordRates accepts either one observation or an array of them.
// A batch is all-or-nothing: one invalid rate rejects the whole request.
func (s *Server) handleRecordRates(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		s.respondError(w, r, err)
		return
	}

	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		var reqs []rateRequest
		if err := json.Unmarshal(raw, &reqs); err != nil {
			s.respondError(w, r, core.ValidationError{Message: "invalid JSON: " + err.Error()})
			return
		}
		rates := make([]core.ExchangeRate, len(reqs))
		for i, req := range reqs {
			rates[i] = core.ExchangeRate{Currency: req.Currency, Rate: req.Rate, Timestamp: req.Timestamp}
		}
		recorded, err := s.service.RecordRates(r.Context(), rates)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, recorded)
		return
	}

	var req rateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.respondError(w, r, core.ValidationError{Message: "invalid JSON: " + err.Error()})
		return
	}
	rate, err := s.service.RecordRate(r.Context(), req.Currency, req.Rate, req.Timestamp)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rate)
}

func (s *Server) handleLatestRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.service.LatestRate(r.Context(), chi.URLParam(r, "currency"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// handleRateHistory returns observations newest first, capped by ?limit=.
func (s *Server) handleRateHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 0)
	rates, err := s.service.RateHistory(r.Context(), chi.URLParam(r, "currency"), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}
