package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"conduit/domain"
	"conduit/errs"
)

func (s *Server) registerCommentRoutes(r *mux.Router) {
	r.HandleFunc("/articles/{slug}/comments", s.handleListComments).Methods("GET")
	r.HandleFunc("/articles/{slug}/comments", s.requireAuth(s.handleAddComment)).Methods("POST")
	r.HandleFunc("/articles/{slug}/comments/{id:[0-9]+}", s.requireAuth(s.handleUpdateComment)).Methods("PUT")
	r.HandleFunc("/articles/{slug}/comments/{id:[0-9]+}", s.requireAuth(s.handleDeleteComment)).Methods("DELETE")
}

type commentEnvelope struct {
	Comment *domain.Comment `json:"comment"`
}

type commentsEnvelope struct {
	Comments []domain.Comment `json:"comments"`
}

type commentBody struct {
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
}

// handleListComments handles "GET /api/articles/{slug}/comments".
// Auth is optional.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	comments, err := s.cs.ByArticle(r.Context(), mux.Vars(r)["slug"],
		intParam(query.Get("limit")), intParam(query.Get("offset")))
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, commentsEnvelope{Comments: comments})
}

// handleAddComment handles "POST /api/articles/{slug}/comments".
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var in commentBody
	if err := decode(r, &in); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	comment, err := s.cs.Add(r.Context(), mux.Vars(r)["slug"], in.Comment.Body)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, commentEnvelope{Comment: comment})
}

// handleUpdateComment handles "PUT /api/articles/{slug}/comments/{id}".
func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var in commentBody
	if err := decode(r, &in); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	comment, err := s.cs.Update(r.Context(), mux.Vars(r)["slug"], id, in.Comment.Body)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, commentEnvelope{Comment: comment})
}

// handleDeleteComment handles "DELETE /api/articles/{slug}/comments/{id}".
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := s.cs.Remove(r.Context(), mux.Vars(r)["slug"], id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{})
}
