package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"conduit/auth"
	"conduit/crud"
	"conduit/domain"
)

// Server provides the http functionality of the app: routing, request
// handling and middleware. It performs authentication and hands things
// over to the entity services.
type Server struct {
	router   *mux.Router
	logger   zerolog.Logger
	resolver *auth.Resolver

	us domain.UserService
	as domain.ArticleService
	cs domain.CommentService
}

// NewServer returns a new instance of the server, registers all routes
// and gives their handlers access to the services passed in.
func NewServer(resolver *auth.Resolver, services *crud.Services, logger zerolog.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		resolver: resolver,
		us:       services.User,
		as:       services.Article,
		cs:       services.Comment,
	}

	api := s.router.PathPrefix("/api").Subrouter()
	s.registerUserRoutes(api)
	s.registerProfileRoutes(api)
	s.registerArticleRoutes(api)
	s.registerCommentRoutes(api)

	s.router.Use(setContentTypeJSON, s.requestLogger, s.authUser)
	return s
}

// Handler returns the server's root handler with CORS applied, so
// tests can drive the full middleware chain without a listener.
func (s *Server) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(s.router)
}

// Run starts to listen and serve on the specified port.
func (s *Server) Run(port int) error {
	addr := ":" + strconv.Itoa(port)
	s.logger.Info().Str("addr", addr).Msg("listening")
	return http.ListenAndServe(addr, s.Handler())
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// authUser is the optional-auth middleware. It accepts "Token <jwt>"
// and "Bearer <jwt>" authorization headers. Resolution failures are
// swallowed and the request proceeds anonymously; endpoints that need a
// user are wrapped in requireAuth on top of this.
func (s *Server) authUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.SetToken(r.Context(), token)
		user, err := s.resolver.Resolve(ctx, token)
		if err != nil {
			// The one place an auth error is deliberately downgraded:
			// an unusable token just means an anonymous request.
			s.logger.Debug().Err(err).Msg("token resolution failed, continuing anonymous")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.SetUser(ctx, user)))
	})
}

// requireAuth gates handlers that declare auth required.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// bearerToken extracts the raw token from an authorization header of
// the form "Token <value>" or "Bearer <value>".
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if parts[0] != "Token" && parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
