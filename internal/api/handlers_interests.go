package api

import (
	"net/http"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
	"github.com/uma-arai/sbcntr-rendezvous/internal/service/agent"
)

type interestRequest struct {
	VenueID int64  `json:"venue_id" validate:"required,gt=0"`
	Status  string `json:"status" validate:"required,oneof=INTERESTED NOT_INTERESTED INVITED CONFIRMED"`
}

// interestResponse は関心レコードに、CONFIRMED登録で動いた自動予約の結果を添えたものです
type interestResponse struct {
	*model.Interest
	Agent *agent.AutoCreateResult `json:"agent,omitempty"`
}

// ListInterests はユーザーの関心一覧を返します
func (s *Server) ListInterests(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	interests, err := s.deps.Interests.List(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if interests == nil {
		interests = []model.Interest{}
	}
	respondJSON(w, http.StatusOK, interests)
}

// UpsertInterest は関心を登録・更新します
func (s *Server) UpsertInterest(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req interestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	status, err := model.ParseInterestStatus(req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := s.deps.Venues.GetByID(r.Context(), req.VenueID); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.deps.Interests.Upsert(r.Context(), user.ID, req.VenueID, status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, interestResponse{Interest: result.Interest, Agent: result.Agent})
}
