package api

import (
	"net/http"
	"time"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

type createReservationRequest struct {
	VenueID            int64     `json:"venue_id" validate:"required,gt=0"`
	Time               time.Time `json:"time" validate:"required"`
	ParticipantUserIDs []int64   `json:"participant_user_ids" validate:"required,min=1,dive,gt=0"`
}

type acceptReservationRequest struct {
	ReservationID int64 `json:"reservation_id" validate:"required,gt=0"`
	UserID        int64 `json:"user_id" validate:"required,gt=0"`
}

// CreateReservation はPENDINGの予約を作成し、参加者全員を招待します
func (s *Server) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if _, err := s.deps.Venues.GetByID(ctx, req.VenueID); err != nil {
		respondError(w, r, err)
		return
	}
	for _, userID := range req.ParticipantUserIDs {
		if _, err := s.deps.Users.GetByID(ctx, userID); err != nil {
			respondError(w, r, err)
			return
		}
	}

	reservation, err := s.deps.Reservations.Invite(ctx, req.VenueID, req.ParticipantUserIDs, req.Time)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, reservation)
}

// AcceptReservation は参加者の承諾を記録し、全員が承諾していれば予約を確定します
func (s *Server) AcceptReservation(w http.ResponseWriter, r *http.Request) {
	var req acceptReservationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if _, err := s.deps.Users.GetByID(r.Context(), req.UserID); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.deps.Reservations.AcceptInvitation(r.Context(), req.ReservationID, req.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListReservations はユーザーが作成または参加している予約を返します
func (s *Server) ListReservations(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	reservations, err := s.deps.Bookings.ListByUser(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if reservations == nil {
		reservations = []model.Reservation{}
	}
	respondJSON(w, http.StatusOK, reservations)
}
