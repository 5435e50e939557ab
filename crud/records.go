package crud

import (
	"time"

	"conduit/domain"
)

// Cache records. The domain structs hide their identifying fields from
// JSON for API responses, so caching them directly would zero the ids
// on the round trip. Cached reads go through these fully-tagged
// projections instead; the API shape stays controlled by the domain
// structs' own tags.

type articleRecord struct {
	ID             int             `json:"id"`
	Slug           string          `json:"slug"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Body           string          `json:"body"`
	TagList        []string        `json:"tagList"`
	AuthorID       int             `json:"authorId"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Author         *domain.Profile `json:"author"`
	Favorited      bool            `json:"favorited"`
	FavoritesCount int             `json:"favoritesCount"`
}

func newArticleRecord(article *domain.Article) articleRecord {
	return articleRecord{
		ID:             article.ID,
		Slug:           article.Slug,
		Title:          article.Title,
		Description:    article.Description,
		Body:           article.Body,
		TagList:        article.TagList,
		AuthorID:       article.AuthorID,
		CreatedAt:      article.CreatedAt,
		UpdatedAt:      article.UpdatedAt,
		Author:         article.Author,
		Favorited:      article.Favorited,
		FavoritesCount: article.FavoritesCount,
	}
}

func (r articleRecord) article() domain.Article {
	return domain.Article{
		ID:             r.ID,
		Slug:           r.Slug,
		Title:          r.Title,
		Description:    r.Description,
		Body:           r.Body,
		TagList:        r.TagList,
		AuthorID:       r.AuthorID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Author:         r.Author,
		Favorited:      r.Favorited,
		FavoritesCount: r.FavoritesCount,
	}
}

type articleListRecord struct {
	Articles []articleRecord `json:"articles"`
	Total    int             `json:"total"`
}

func newArticleListRecord(list *domain.ArticleList) articleListRecord {
	articles := make([]articleRecord, len(list.Articles))
	for i := range list.Articles {
		articles[i] = newArticleRecord(&list.Articles[i])
	}
	return articleListRecord{Articles: articles, Total: list.ArticlesCount}
}

func (r articleListRecord) list() *domain.ArticleList {
	articles := make([]domain.Article, len(r.Articles))
	for i := range r.Articles {
		articles[i] = r.Articles[i].article()
	}
	return &domain.ArticleList{Articles: articles, ArticlesCount: r.Total}
}

type commentRecord struct {
	ID        int             `json:"id"`
	ArticleID int             `json:"articleId"`
	AuthorID  int             `json:"authorId"`
	Body      string          `json:"body"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Author    *domain.Profile `json:"author"`
}

func newCommentRecords(comments []domain.Comment) []commentRecord {
	records := make([]commentRecord, len(comments))
	for i := range comments {
		records[i] = commentRecord{
			ID:        comments[i].ID,
			ArticleID: comments[i].ArticleID,
			AuthorID:  comments[i].AuthorID,
			Body:      comments[i].Body,
			CreatedAt: comments[i].CreatedAt,
			UpdatedAt: comments[i].UpdatedAt,
			Author:    comments[i].Author,
		}
	}
	return records
}

func commentsFromRecords(records []commentRecord) []domain.Comment {
	comments := make([]domain.Comment, len(records))
	for i := range records {
		comments[i] = domain.Comment{
			ID:        records[i].ID,
			ArticleID: records[i].ArticleID,
			AuthorID:  records[i].AuthorID,
			Body:      records[i].Body,
			CreatedAt: records[i].CreatedAt,
			UpdatedAt: records[i].UpdatedAt,
			Author:    records[i].Author,
		}
	}
	return comments
}
