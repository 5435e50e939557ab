package domain

import (
	"context"
	"time"
)

// Comment represents a comment on an article. Only its author may update
// or delete it. Author is populated by the relationship aggregator.
type Comment struct {
	ID        int    `json:"id"`
	ArticleID int    `json:"-" gorm:"index;notNull"`
	AuthorID  int    `json:"-" gorm:"notNull"`
	Body      string `json:"body"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Author *Profile `json:"author" gorm:"-"`
}

// CommentService is a set of methods to manipulate and work with the
// Comment model. All operations resolve the article by slug first; a
// missing article fails with a not-found error before anything else runs.
type CommentService interface {
	Add(ctx context.Context, slug, body string) (*Comment, error)
	Update(ctx context.Context, slug string, id int, body string) (*Comment, error)
	ByArticle(ctx context.Context, slug string, limit, offset int) ([]Comment, error)
	Remove(ctx context.Context, slug string, id int) error
}
