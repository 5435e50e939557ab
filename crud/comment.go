package crud

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"conduit/aggregate"
	"conduit/auth"
	"conduit/cache"
	"conduit/domain"
	"conduit/errs"
)

// CommentService manages Comments. It implements the
// domain.CommentService interface. Every operation resolves the article
// by slug first, so a vanished article is a not-found error before any
// comment work happens.
type CommentService struct {
	commentValidator
	agg   *aggregate.Aggregator
	cache cache.Cache
	bus   *cache.Bus
}

// commentValidator runs validations on incoming Comment data.
// On success, it passes the data on to commentGorm.
// Otherwise, it returns the error of the validation that has failed.
type commentValidator struct {
	commentGorm
}

// commentGorm runs CRUD operations on the database using incoming
// Comment data. It assumes that data has been validated.
type commentGorm struct {
	db *gorm.DB
}

// NewCommentService returns an instance of CommentService.
func NewCommentService(db *gorm.DB, agg *aggregate.Aggregator, c cache.Cache, bus *cache.Bus) *CommentService {
	return &CommentService{
		commentValidator: commentValidator{
			commentGorm{db: db},
		},
		agg:   agg,
		cache: c,
		bus:   bus,
	}
}

// Ensure the CommentService struct properly implements the domain.CommentService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.CommentService = &CommentService{}

// Add creates a comment on the article behind slug, authored by the
// current user.
func (cs *CommentService) Add(ctx context.Context, slug, body string) (*domain.Comment, error) {
	user := auth.GetUser(ctx)
	if user == nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	article, err := cs.articleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := cs.validateBody(body); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ArticleID: article.ID,
		AuthorID:  user.ID,
		Body:      body,
	}
	if err := cs.insert(ctx, comment); err != nil {
		return nil, err
	}
	cs.bus.Changed(ctx, "comments")

	if err := cs.populateOne(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Update modifies a comment's body. Only the comment's author may do
// this.
func (cs *CommentService) Update(ctx context.Context, slug string, id int, body string) (*domain.Comment, error) {
	user := auth.GetUser(ctx)
	if user == nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	article, err := cs.articleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	comment, err := cs.byID(ctx, article.ID, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != user.ID {
		return nil, errs.Errorf(errs.EFORBIDDEN, "You are not the author of this comment.")
	}
	if err := cs.validateBody(body); err != nil {
		return nil, err
	}

	comment.Body = body
	if err := cs.save(ctx, comment); err != nil {
		return nil, err
	}
	cs.bus.Changed(ctx, "comments")

	if err := cs.populateOne(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ByArticle returns the article's comments, newest first, with authors
// populated. Cached per (token, article, limit, offset).
func (cs *CommentService) ByArticle(ctx context.Context, slug string, limit, offset int) ([]domain.Comment, error) {
	article, err := cs.articleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	limit, offset = pagination(limit, offset)

	key := cache.Key("comments.list",
		"token="+auth.GetToken(ctx),
		"article="+strconv.Itoa(article.ID),
		"limit="+strconv.Itoa(limit),
		"offset="+strconv.Itoa(offset))
	var cached []commentRecord
	if ok, err := cs.cache.Get(ctx, key, &cached); err == nil && ok {
		return commentsFromRecords(cached), nil
	}

	var comments []domain.Comment
	err = cs.db.WithContext(ctx).
		Where("article_id = ?", article.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	if err := cs.agg.PopulateComments(ctx, comments); err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	cs.cache.Set(ctx, key, newCommentRecords(comments), readTTL)
	return comments, nil
}

// Remove deletes a comment. Only the comment's author may do this.
func (cs *CommentService) Remove(ctx context.Context, slug string, id int) error {
	user := auth.GetUser(ctx)
	if user == nil {
		return errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	article, err := cs.articleBySlug(ctx, slug)
	if err != nil {
		return err
	}
	comment, err := cs.byID(ctx, article.ID, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != user.ID {
		return errs.Errorf(errs.EFORBIDDEN, "You are not the author of this comment.")
	}
	if err := cs.deleteByID(ctx, comment.ID); err != nil {
		return err
	}
	cs.bus.Changed(ctx, "comments")
	return nil
}

func (cs *CommentService) populateOne(ctx context.Context, comment *domain.Comment) error {
	batch := []domain.Comment{*comment}
	if err := cs.agg.PopulateComments(ctx, batch); err != nil {
		return err
	}
	*comment = batch[0]
	return nil
}

// validateBody checks the one validated comment field.
func (cv *commentValidator) validateBody(body string) error {
	var v errs.Violations
	if strings.TrimSpace(body) == "" {
		v.Add("body", "can't be blank")
	}
	return v.Err()
}

// articleBySlug resolves the owning article. The comment service reads
// the articles table directly rather than going through the article
// service, so comment writes don't touch the article read cache.
func (cg *commentGorm) articleBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var article domain.Article
	err := cg.db.WithContext(ctx).Where("slug = ?", slug).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "Article not found.")
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// byID retrieves a comment scoped to its article; a comment id from
// another article is a not-found, not a leak.
func (cg *commentGorm) byID(ctx context.Context, articleID, id int) (*domain.Comment, error) {
	var comment domain.Comment
	err := cg.db.WithContext(ctx).
		Where("id = ? AND article_id = ?", id, articleID).
		First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "Comment not found.")
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (cg *commentGorm) insert(ctx context.Context, comment *domain.Comment) error {
	return cg.db.WithContext(ctx).Create(comment).Error
}

func (cg *commentGorm) save(ctx context.Context, comment *domain.Comment) error {
	return cg.db.WithContext(ctx).Save(comment).Error
}

func (cg *commentGorm) deleteByID(ctx context.Context, id int) error {
	return cg.db.WithContext(ctx).Delete(&domain.Comment{}, id).Error
}
