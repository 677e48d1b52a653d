package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// itemRequest is the body of add and edit calls. Conditions accept 1-5,
// "missing" or null; the override accepts a number, a numeric string or
// blank for none.
type itemRequest struct {
	GameID        int64        `json:"game_id"`
	ConsoleID     *int64       `json:"console_id"`
	RegionID      *int64       `json:"region_id"`
	Box           core.Rating  `json:"box_condition"`
	Manual        core.Rating  `json:"manual_condition"`
	Disc          core.Rating  `json:"disc_condition"`
	PriceOverride flexOverride `json:"price_override"`
	IsSpecial     bool         `json:"is_special"`
	IsKinect      bool         `json:"is_kinect"`
	IsNew         bool         `json:"is_new"`
	IsPromo       bool         `json:"is_promo"`
	AddedDate     time.Time    `json:"added_date"`
}

func (req itemRequest) item() core.CollectionItem {
	return core.CollectionItem{
		GameID:        req.GameID,
		ConsoleID:     req.ConsoleID,
		RegionID:      req.RegionID,
		Box:           req.Box,
		Manual:        req.Manual,
		Disc:          req.Disc,
		PriceOverride: req.PriceOverride.value,
		IsSpecial:     req.IsSpecial,
		IsKinect:      req.IsKinect,
		IsNew:         req.IsNew,
		IsPromo:       req.IsPromo,
		AddedDate:     req.AddedDate,
	}
}

// handleListCollection lists owned copies, optionally by game_id or console_id.
func (s *Server) handleListCollection(w http.ResponseWriter, r *http.Request) {
	filter := core.ItemFilter{Limit: parseIntParam(r, "limit", 0)}

	gameID, err := queryID(r, "game_id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if gameID != nil {
		filter.GameID = *gameID
	}
	if filter.ConsoleID, err = queryID(r, "console_id"); err != nil {
		s.respondError(w, r, err)
		return
	}

	items, err := s.service.ListCollection(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.GameID <= 0 {
		s.respondError(w, r, core.ValidationError{Field: "game_id", Message: "required field is empty"})
		return
	}

	item, err := s.service.AddToCollection(r.Context(), req.item())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleUpdateCollectionItem replaces conditions, flags and override.
func (s *Server) handleUpdateCollectionItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	item, err := s.service.UpdateCollectionItem(r.Context(), id, req.item())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteCollectionItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.DeleteCollectionItem(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkNew(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	item, err := s.service.MarkNew(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleItemValue resolves one copy's price in ?column= (default column
// when omitted).
func (s *Server) handleItemValue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	col, err := queryColumn(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	v, err := s.service.ValueItem(r.Context(), id, col)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCollectionValue(w http.ResponseWriter, r *http.Request) {
	col, err := queryColumn(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	summary, err := s.service.CollectionSummary(r.Context(), col)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
