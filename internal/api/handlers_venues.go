package api

import (
	"net/http"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// ListVenues は店舗一覧を返します。category と緯度経度の範囲で絞り込めます
func (s *Server) ListVenues(w http.ResponseWriter, r *http.Request) {
	var filter model.VenueFilter
	if category := r.URL.Query().Get("category"); category != "" {
		filter.Category = &category
	}

	bounds := []struct {
		name string
		dst  **float64
	}{
		{"min_lat", &filter.MinLat},
		{"max_lat", &filter.MaxLat},
		{"min_lon", &filter.MinLon},
		{"max_lon", &filter.MaxLon},
	}
	for _, b := range bounds {
		v, err := queryFloat(r, b.name)
		if err != nil {
			respondError(w, r, err)
			return
		}
		*b.dst = v
	}

	venues, err := s.deps.Venues.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if venues == nil {
		venues = []model.Venue{}
	}
	respondJSON(w, http.StatusOK, venues)
}

// GetVenue は店舗を1件返します
func (s *Server) GetVenue(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathID(r, "venueID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	venue, err := s.deps.Venues.GetByID(r.Context(), venueID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, venue)
}
