package crud

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"conduit/auth"
	"conduit/cache"
	"conduit/domain"
)

// newTestServices wires the full service container against a throwaway
// sqlite database and an in-memory cache. The cache is returned as well
// so tests can assert on invalidation behavior.
func newTestServices(t *testing.T) (*Services, *cache.Memory) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		domain.User{},
		domain.Article{},
		domain.Comment{},
		domain.Favorite{},
		domain.Follow{},
	))

	c := cache.NewMemory()
	bus := cache.NewBus(c, zerolog.Nop())
	return NewServices(db, c, bus), c
}

func registerUser(t *testing.T, s *Services, username string) *domain.User {
	t.Helper()
	user, err := s.User.Register(context.Background(), &domain.UserRegistration{
		Username: username,
		Email:    username + "@realworld.io",
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

// authedCtx builds a context carrying the user and a distinct token, the
// way the http middleware would after resolving a bearer token.
func authedCtx(user *domain.User) context.Context {
	ctx := auth.SetUser(context.Background(), user)
	return auth.SetToken(ctx, "test-token-"+user.Username)
}

func createArticle(t *testing.T, s *Services, ctx context.Context, title string, tags ...string) *domain.Article {
	t.Helper()
	article, err := s.Article.Create(ctx, &domain.ArticleDraft{
		Title:       title,
		Description: "About " + title,
		Body:        "Body of " + title,
		TagList:     tags,
	})
	require.NoError(t, err)
	return article
}
