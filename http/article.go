package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"conduit/domain"
	"conduit/errs"
)

func (s *Server) registerArticleRoutes(r *mux.Router) {
	// The feed route must be registered before the {slug} routes so
	// "feed" is never parsed as a slug.
	r.HandleFunc("/articles/feed", s.requireAuth(s.handleFeed)).Methods("GET")
	r.HandleFunc("/articles", s.handleListArticles).Methods("GET")
	r.HandleFunc("/articles", s.requireAuth(s.handleCreateArticle)).Methods("POST")
	r.HandleFunc("/articles/{slug}", s.handleGetArticle).Methods("GET")
	r.HandleFunc("/articles/{slug}", s.requireAuth(s.handleUpdateArticle)).Methods("PUT")
	r.HandleFunc("/articles/{slug}", s.requireAuth(s.handleDeleteArticle)).Methods("DELETE")
	r.HandleFunc("/articles/{slug}/favorite", s.requireAuth(s.handleFavorite)).Methods("POST")
	r.HandleFunc("/articles/{slug}/favorite", s.requireAuth(s.handleUnfavorite)).Methods("DELETE")
	r.HandleFunc("/tags", s.handleTags).Methods("GET")
}

type articleEnvelope struct {
	Article *domain.Article `json:"article"`
}

type tagsEnvelope struct {
	Tags []string `json:"tags"`
}

// handleListArticles handles "GET /api/articles" with the tag, author,
// favorited, limit and offset query parameters. Auth is optional.
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ArticleFilter{
		Tag:       query.Get("tag"),
		Author:    query.Get("author"),
		Favorited: query.Get("favorited"),
		Limit:     intParam(query.Get("limit")),
		Offset:    intParam(query.Get("offset")),
	}

	list, err := s.as.List(r.Context(), filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

// handleFeed handles "GET /api/articles/feed".
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.FeedFilter{
		Limit:  intParam(query.Get("limit")),
		Offset: intParam(query.Get("offset")),
	}

	list, err := s.as.Feed(r.Context(), filter)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

// handleGetArticle handles "GET /api/articles/{slug}".
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.as.BySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, articleEnvelope{Article: article})
}

// handleCreateArticle handles "POST /api/articles".
func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Article domain.ArticleDraft `json:"article"`
	}
	if err := decode(r, &in); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	article, err := s.as.Create(r.Context(), &in.Article)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, articleEnvelope{Article: article})
}

// handleUpdateArticle handles "PUT /api/articles/{slug}".
func (s *Server) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Article domain.ArticleUpdate `json:"article"`
	}
	if err := decode(r, &in); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	article, err := s.as.Update(r.Context(), mux.Vars(r)["slug"], &in.Article)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, articleEnvelope{Article: article})
}

// handleDeleteArticle handles "DELETE /api/articles/{slug}".
func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := s.as.Remove(r.Context(), mux.Vars(r)["slug"]); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]interface{}{})
}

// handleFavorite handles "POST /api/articles/{slug}/favorite".
func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	article, err := s.as.Favorite(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, articleEnvelope{Article: article})
}

// handleUnfavorite handles "DELETE /api/articles/{slug}/favorite".
func (s *Server) handleUnfavorite(w http.ResponseWriter, r *http.Request) {
	article, err := s.as.Unfavorite(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, articleEnvelope{Article: article})
}

// handleTags handles "GET /api/tags".
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.as.Tags(r.Context())
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, tagsEnvelope{Tags: tags})
}

// intParam parses a numeric query parameter, treating absent or
// malformed values as zero so service defaults kick in.
func intParam(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
