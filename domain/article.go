package domain

import (
	"context"
	"time"
)

// Article represents a published post. The slug is derived from the title
// once at creation and never changes; the author is set once as well.
// Author, Favorited and FavoritesCount are populated by the relationship
// aggregator, not stored.
type Article struct {
	ID          int      `json:"-"`
	Slug        string   `json:"slug" gorm:"uniqueIndex;size:255"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList" gorm:"serializer:json;type:text"`
	AuthorID    int      `json:"-" gorm:"index;notNull"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Author         *Profile `json:"author" gorm:"-"`
	Favorited      bool     `json:"favorited" gorm:"-"`
	FavoritesCount int      `json:"favoritesCount" gorm:"-"`
}

// ArticleDraft is the payload for creating a new article.
type ArticleDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	TagList     []string `json:"tagList"`
}

// ArticleUpdate holds modified article fields. Nil means "leave unchanged".
type ArticleUpdate struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Body        *string   `json:"body"`
	TagList     *[]string `json:"tagList"`
}

// ArticleFilter narrows and paginates article listings. Author and
// Favorited are usernames; Tag matches any element of the tag list.
type ArticleFilter struct {
	Tag       string
	Author    string
	Favorited string

	Limit  int
	Offset int
}

// FeedFilter paginates the personal feed.
type FeedFilter struct {
	Limit  int
	Offset int
}

// ArticleList is a page of articles together with the total count of
// rows matching the filter without pagination.
type ArticleList struct {
	Articles      []Article `json:"articles"`
	ArticlesCount int       `json:"articlesCount"`
}

// ArticleService is a set of methods to manipulate and work with the
// Article model. Mutating operations act on behalf of the user attached
// to the context and enforce ownership.
type ArticleService interface {
	Create(ctx context.Context, draft *ArticleDraft) (*Article, error)
	Update(ctx context.Context, slug string, upd *ArticleUpdate) (*Article, error)
	BySlug(ctx context.Context, slug string) (*Article, error)
	List(ctx context.Context, filter ArticleFilter) (*ArticleList, error)
	Feed(ctx context.Context, filter FeedFilter) (*ArticleList, error)
	Remove(ctx context.Context, slug string) error
	Favorite(ctx context.Context, slug string) (*Article, error)
	Unfavorite(ctx context.Context, slug string) (*Article, error)
	Tags(ctx context.Context) ([]string, error)
}
