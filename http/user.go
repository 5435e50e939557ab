package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"conduit/auth"
	"conduit/domain"
	"conduit/errs"
)

func (s *Server) registerUserRoutes(r *mux.Router) {
	r.HandleFunc("/users", s.handleRegister).Methods("POST")
	r.HandleFunc("/users/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/user", s.requireAuth(s.handleCurrentUser)).Methods("GET")
	r.HandleFunc("/user", s.requireAuth(s.handleUpdateUser)).Methods("PUT")
}

// userEnvelope is the {user: …} response shape, the account fields plus
// a JWT.
type userEnvelope struct {
	User struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Bio      string `json:"bio"`
		Image    string `json:"image"`
		Token    string `json:"token"`
	} `json:"user"`
}

func newUserEnvelope(user *domain.User, token string) userEnvelope {
	var env userEnvelope
	env.User.Username = user.Username
	env.User.Email = user.Email
	env.User.Bio = user.Bio
	env.User.Image = user.Image
	env.User.Token = token
	return env
}

// handleRegister handles "POST /api/users". It creates an account and
// signs the new user in by returning a fresh token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		User domain.UserRegistration `json:"user"`
	}
	if err := decode(r, &in); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user, err := s.us.Register(r.Context(), &in.User)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	token, err := s.resolver.Issue(user)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, newUserEnvelope(user, token))
}

// handleLogin handles "POST /api/users/login".
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		User struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := decode(r, &in); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user, err := s.us.Login(r.Context(), in.User.Email, in.User.Password)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	token, err := s.resolver.Issue(user)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newUserEnvelope(user, token))
}

// handleCurrentUser handles "GET /api/user". The token that
// authenticated the request is echoed back in the envelope.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.us.Me(r.Context())
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newUserEnvelope(user, auth.GetToken(r.Context())))
}

// handleUpdateUser handles "PUT /api/user".
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		User domain.UserUpdate `json:"user"`
	}
	if err := decode(r, &in); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	current := auth.GetUser(r.Context())
	user, err := s.us.Update(r.Context(), current.ID, &in.User)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newUserEnvelope(user, auth.GetToken(r.Context())))
}
