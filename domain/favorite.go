package domain

import (
	"context"
	"time"
)

// Favorite represents a many-to-many relationship between a User and an
// Article. The (article, user) pair is unique; the index enforces it at
// the store boundary so a concurrent double-favorite fails there even if
// the pre-check missed it.
type Favorite struct {
	ID        int       `json:"id"`
	ArticleID int       `json:"article_id" gorm:"notNull;uniqueIndex:idx_favorites_article_user"`
	UserID    int       `json:"user_id" gorm:"notNull;uniqueIndex:idx_favorites_article_user"`
	CreatedAt time.Time `json:"created_at"`
}

// FavoriteService is a set of methods to manipulate and work with the
// Favorite model.
type FavoriteService interface {
	Add(ctx context.Context, articleID, userID int) error
	Remove(ctx context.Context, articleID, userID int) error
	Has(ctx context.Context, articleID, userID int) (bool, error)
	Count(ctx context.Context, articleID int) (int, error)
	ArticleIDsByUser(ctx context.Context, userID int) ([]int, error)
	RemoveByArticle(ctx context.Context, articleID int) error
}
