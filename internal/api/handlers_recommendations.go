package api

import (
	"fmt"
	"net/http"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/recommend"
)

type recommendationsResponse struct {
	RecommendedVenues []recommend.RecommendedVenue `json:"recommended_venues"`
}

// GetRecommendations はユーザー向けの店舗と同行者のレコメンドを返します
// lat/lonは両方指定するか、両方省略します
func (s *Server) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	loc, err := parseLocation(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	venues, err := s.deps.Recommender.Compose(r.Context(), userID, loc)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if venues == nil {
		venues = []recommend.RecommendedVenue{}
	}
	respondJSON(w, http.StatusOK, recommendationsResponse{RecommendedVenues: venues})
}

func parseLocation(r *http.Request) (*model.Location, error) {
	lat, err := queryFloat(r, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		return nil, err
	}

	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, fmt.Errorf("both latitude and longitude must be provided together: %w", model.ErrInvariantViolation)
	case *lat < -90 || *lat > 90:
		return nil, fmt.Errorf("latitude must be between -90 and 90: %w", model.ErrInvariantViolation)
	case *lon < -180 || *lon > 180:
		return nil, fmt.Errorf("longitude must be between -180 and 180: %w", model.ErrInvariantViolation)
	}
	return &model.Location{Latitude: *lat, Longitude: *lon}, nil
}
