package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// handleListGames lists catalog games. Supported query parameters: title
// (exact, case-insensitive), q (title substring), console_id, region_id,
// pricecharting_url and limit.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.GameFilter{
		Title:            q.Get("title"),
		Search:           q.Get("q"),
		PricechartingURL: q.Get("pricecharting_url"),
		Limit:            parseIntParam(r, "limit", 0),
	}

	var err error
	if filter.ConsoleID, err = queryID(r, "console_id"); err != nil {
		s.respondError(w, r, err)
		return
	}
	if filter.RegionID, err = queryID(r, "region_id"); err != nil {
		s.respondError(w, r, err)
		return
	}

	games, err := s.service.ListGames(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleAddGame(w http.ResponseWriter, r *http.Request) {
	var game core.CatalogGame
	if err := decodeJSON(w, r, &game); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.service.AddGame(r.Context(), game)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	game, err := s.service.GetGame(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// handleUpdateGame replaces the whole game; omitted fields are cleared.
func (s *Server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var game core.CatalogGame
	if err := decodeJSON(w, r, &game); err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.service.UpdateGame(r.Context(), id, game)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.DeleteGame(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type duplicateRequest struct {
	Title            string `json:"title"`
	ConsoleID        *int64 `json:"console_id"`
	PricechartingURL string `json:"pricecharting_url"`
}

// handleCheckDuplicate runs the duplicate rules without writing. A hit is
// still a 200; the body says whether the game exists.
func (s *Server) handleCheckDuplicate(w http.ResponseWriter, r *http.Request) {
	var req duplicateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.CheckDuplicate(r.Context(), req.Title, req.ConsoleID, req.PricechartingURL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePrices returns the fifteen raw price columns for a PriceCharting id.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	pcID := chi.URLParam(r, "pricechartingID")
	if pcID == "" {
		writeError(w, http.StatusBadRequest, "missing pricecharting id")
		return
	}

	prices, err := s.service.PricesByExternalID(r.Context(), pcID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// handleConvertPrices recomputes every NOK column from USD at the latest rate.
func (s *Server) handleConvertPrices(w http.ResponseWriter, r *http.Request) {
	updated, err := s.service.ConvertPrices(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}
