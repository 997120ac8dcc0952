package api

import (
	"net/http"

	"github.com/uma-arai/sbcntr-rendezvous/internal/model"
)

// ListUsers はユーザー一覧を返します
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Users.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

// GetUser はユーザーを1件返します
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ListFriends はユーザーのフレンド関係を返します
func (s *Server) ListFriends(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	friends, err := s.deps.Users.ListFriends(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if friends == nil {
		friends = []model.Friend{}
	}
	respondJSON(w, http.StatusOK, friends)
}

// requireUser はパスのuserIDのユーザーを取得します。失敗時はレスポンスを書き込みfalseを返します
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	user, err := s.deps.Users.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	return user, true
}
