package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"conduit/domain"
	"conduit/errs"
)

func (s *Server) registerProfileRoutes(r *mux.Router) {
	r.HandleFunc("/profiles/{username}", s.handleGetProfile).Methods("GET")
	r.HandleFunc("/profiles/{username}/follow", s.requireAuth(s.handleFollow)).Methods("POST")
	r.HandleFunc("/profiles/{username}/follow", s.requireAuth(s.handleUnfollow)).Methods("DELETE")
}

type profileEnvelope struct {
	Profile *domain.Profile `json:"profile"`
}

// handleGetProfile handles "GET /api/profiles/{username}". Auth is
// optional; without it the following flag is always false.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.us.Profile(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, profileEnvelope{Profile: profile})
}

// handleFollow handles "POST /api/profiles/{username}/follow".
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	profile, err := s.us.Follow(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, profileEnvelope{Profile: profile})
}

// handleUnfollow handles "DELETE /api/profiles/{username}/follow".
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	profile, err := s.us.Unfollow(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, profileEnvelope{Profile: profile})
}
