package api

import (
	"net/http"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// ListNotifications はユーザーへの通知を返します
func (s *Server) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.deps.Notifications.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []model.NotificationRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

// MarkNotificationRead は通知を既読にします
func (s *Server) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	notificationID, err := pathID(r, "notificationID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.deps.Notifications.MarkRead(r.Context(), userID, notificationID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
