package crud

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"conduit/aggregate"
	"conduit/auth"
	"conduit/cache"
	"conduit/domain"
	"conduit/errs"
)

// slugSuffixLen is the length of the random base-36 suffix appended to
// every slug. Collisions are improbable (~1/36^6) but not impossible;
// creation retries with a fresh suffix when one happens.
const slugSuffixLen = 6

// slugMaxAttempts bounds the suffix retry loop.
const slugMaxAttempts = 5

// ArticleService manages Articles. It implements the
// domain.ArticleService interface.
type ArticleService struct {
	articleValidator
	users     domain.UserService
	favorites domain.FavoriteService
	follows   domain.FollowService
	agg       *aggregate.Aggregator
	cache     cache.Cache
	bus       *cache.Bus

	// slugSuffix is swappable so tests can force suffix collisions.
	slugSuffix func() string
}

// articleValidator runs validations on incoming Article data.
// On success, it passes the data on to articleGorm.
// Otherwise, it returns the error of the validation that has failed.
type articleValidator struct {
	articleGorm
}

// articleGorm runs CRUD operations on the database using incoming
// Article data. It assumes that data has been validated.
type articleGorm struct {
	db *gorm.DB
}

// NewArticleService returns an instance of ArticleService.
func NewArticleService(
	db *gorm.DB,
	users domain.UserService,
	favorites domain.FavoriteService,
	follows domain.FollowService,
	agg *aggregate.Aggregator,
	c cache.Cache,
	bus *cache.Bus,
) *ArticleService {
	return &ArticleService{
		articleValidator: articleValidator{
			articleGorm{db: db},
		},
		users:      users,
		favorites:  favorites,
		follows:    follows,
		agg:        agg,
		cache:      c,
		bus:        bus,
		slugSuffix: randBase36,
	}
}

// Ensure the ArticleService struct properly implements the domain.ArticleService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.ArticleService = &ArticleService{}

// Create publishes a new article on behalf of the current user. The
// slug is derived from the title plus a random suffix, generated here
// once and immutable afterwards.
func (as *ArticleService) Create(ctx context.Context, draft *domain.ArticleDraft) (*domain.Article, error) {
	user := auth.GetUser(ctx)
	if user == nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	if err := as.validateDraft(draft); err != nil {
		return nil, err
	}

	article := &domain.Article{
		Title:       draft.Title,
		Description: draft.Description,
		Body:        draft.Body,
		TagList:     draft.TagList,
		AuthorID:    user.ID,
	}
	if article.TagList == nil {
		article.TagList = []string{}
	}
	if err := as.insertWithSlug(ctx, article); err != nil {
		return nil, err
	}
	as.bus.Changed(ctx, "articles")

	if err := as.populateOne(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

// Update modifies an article's mutable fields. Only the author may do
// this; slug and author never change.
func (as *ArticleService) Update(ctx context.Context, slug string, upd *domain.ArticleUpdate) (*domain.Article, error) {
	user := auth.GetUser(ctx)
	if user == nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	if err := as.validateUpdate(upd); err != nil {
		return nil, err
	}

	article, err := as.bySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if article.AuthorID != user.ID {
		return nil, errs.Errorf(errs.EFORBIDDEN, "You are not the author of this article.")
	}

	if upd.Title != nil {
		article.Title = *upd.Title
	}
	if upd.Description != nil {
		article.Description = *upd.Description
	}
	if upd.Body != nil {
		article.Body = *upd.Body
	}
	if upd.TagList != nil {
		article.TagList = *upd.TagList
	}
	if err := as.save(ctx, article); err != nil {
		return nil, err
	}
	as.bus.Changed(ctx, "articles")

	if err := as.populateOne(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

// BySlug returns a single populated article. Cached per (token, slug).
func (as *ArticleService) BySlug(ctx context.Context, slug string) (*domain.Article, error) {
	key := cache.Key("articles.get", "token="+auth.GetToken(ctx), "slug="+slug)
	var cached articleRecord
	if ok, err := as.cache.Get(ctx, key, &cached); err == nil && ok {
		article := cached.article()
		return &article, nil
	}

	article, err := as.bySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := as.populateOne(ctx, article); err != nil {
		return nil, err
	}
	as.cache.Set(ctx, key, newArticleRecord(article), readTTL)
	return article, nil
}

// List returns a page of articles matching the filter plus the total
// count of matches, sorted newest first.
func (as *ArticleService) List(ctx context.Context, filter domain.ArticleFilter) (*domain.ArticleList, error) {
	limit, offset := pagination(filter.Limit, filter.Offset)

	key := cache.Key("articles.list",
		"token="+auth.GetToken(ctx),
		"tag="+filter.Tag,
		"author="+filter.Author,
		"favorited="+filter.Favorited,
		"limit="+strconv.Itoa(limit),
		"offset="+strconv.Itoa(offset))
	var cached articleListRecord
	if ok, err := as.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached.list(), nil
	}

	query := as.db.WithContext(ctx).Model(&domain.Article{})
	if filter.Tag != "" {
		query = query.Where("tag_list LIKE ?", `%"`+filter.Tag+`"%`)
	}
	if filter.Author != "" {
		author, err := as.users.ByUsername(ctx, filter.Author)
		if err != nil {
			if errs.ErrorCode(err) == errs.ENOTFOUND {
				return nil, errs.Errorf(errs.ENOTFOUND, "Author not found.")
			}
			return nil, err
		}
		query = query.Where("author_id = ?", author.ID)
	}
	if filter.Favorited != "" {
		user, err := as.users.ByUsername(ctx, filter.Favorited)
		if err != nil {
			if errs.ErrorCode(err) == errs.ENOTFOUND {
				return nil, errs.Errorf(errs.ENOTFOUND, "Author not found.")
			}
			return nil, err
		}
		ids, err := as.favorites.ArticleIDsByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			list := emptyList()
			as.cache.Set(ctx, key, newArticleListRecord(list), readTTL)
			return list, nil
		}
		query = query.Where("id IN ?", ids)
	}

	list, err := as.page(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	as.cache.Set(ctx, key, newArticleListRecord(list), readTTL)
	return list, nil
}

// Feed returns a page of articles written by the users the current user
// follows. The followee set is computed fresh per request; a user with
// zero follows gets an empty page, not an error.
func (as *ArticleService) Feed(ctx context.Context, filter domain.FeedFilter) (*domain.ArticleList, error) {
	user := auth.GetUser(ctx)
	if user == nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	limit, offset := pagination(filter.Limit, filter.Offset)

	key := cache.Key("articles.feed",
		"token="+auth.GetToken(ctx),
		"limit="+strconv.Itoa(limit),
		"offset="+strconv.Itoa(offset))
	var cached articleListRecord
	if ok, err := as.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached.list(), nil
	}

	followees, err := as.follows.FolloweeIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(followees) == 0 {
		list := emptyList()
		as.cache.Set(ctx, key, newArticleListRecord(list), readTTL)
		return list, nil
	}

	query := as.db.WithContext(ctx).Model(&domain.Article{}).Where("author_id IN ?", followees)
	list, err := as.page(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	as.cache.Set(ctx, key, newArticleListRecord(list), readTTL)
	return list, nil
}

// Remove deletes an article and, explicitly, its favorites. Comments
// are left to the comment service's own lifecycle. Only the author may
// remove an article.
func (as *ArticleService) Remove(ctx context.Context, slug string) error {
	user := auth.GetUser(ctx)
	if user == nil {
		return errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	article, err := as.bySlug(ctx, slug)
	if err != nil {
		return err
	}
	if article.AuthorID != user.ID {
		return errs.Errorf(errs.EFORBIDDEN, "You are not the author of this article.")
	}
	if err := as.deleteByID(ctx, article.ID); err != nil {
		return err
	}
	if err := as.favorites.RemoveByArticle(ctx, article.ID); err != nil {
		return err
	}
	as.bus.Changed(ctx, "articles")
	return nil
}

// Favorite adds the article to the current user's favorites and returns
// the freshly populated article.
func (as *ArticleService) Favorite(ctx context.Context, slug string) (*domain.Article, error) {
	return as.setFavorited(ctx, slug, as.favorites.Add)
}

// Unfavorite removes the article from the current user's favorites and
// returns the freshly populated article.
func (as *ArticleService) Unfavorite(ctx context.Context, slug string) (*domain.Article, error) {
	return as.setFavorited(ctx, slug, as.favorites.Remove)
}

func (as *ArticleService) setFavorited(ctx context.Context, slug string, change func(context.Context, int, int) error) (*domain.Article, error) {
	user := auth.GetUser(ctx)
	if user == nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	article, err := as.bySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := change(ctx, article.ID, user.ID); err != nil {
		return nil, err
	}
	if err := as.populateOne(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

// Tags returns every distinct tag in use, in order of first appearance
// by article creation time.
func (as *ArticleService) Tags(ctx context.Context) ([]string, error) {
	key := cache.Key("articles.tags")
	var cached []string
	if ok, err := as.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	var articles []domain.Article
	err := as.db.WithContext(ctx).
		Select("tag_list").
		Order("created_at").
		Find(&articles).Error
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	tags := []string{}
	for i := range articles {
		for _, tag := range articles[i].TagList {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	as.cache.Set(ctx, key, tags, readTTL)
	return tags, nil
}

// page runs the row query and the unpaginated count with the same
// predicate concurrently, then populates the rows.
func (as *ArticleService) page(ctx context.Context, query *gorm.DB, limit, offset int) (*domain.ArticleList, error) {
	var articles []domain.Article
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return query.Session(&gorm.Session{}).WithContext(gctx).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Offset(offset).
			Find(&articles).Error
	})
	g.Go(func() error {
		return query.Session(&gorm.Session{}).WithContext(gctx).
			Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := as.agg.PopulateArticles(ctx, articles); err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	return &domain.ArticleList{Articles: articles, ArticlesCount: int(total)}, nil
}

func (as *ArticleService) populateOne(ctx context.Context, article *domain.Article) error {
	batch := []domain.Article{*article}
	if err := as.agg.PopulateArticles(ctx, batch); err != nil {
		return err
	}
	*article = batch[0]
	return nil
}

// validateDraft accumulates every violated field of a new article.
func (av *articleValidator) validateDraft(draft *domain.ArticleDraft) error {
	var v errs.Violations
	if strings.TrimSpace(draft.Title) == "" {
		v.Add("title", "can't be blank")
	}
	if strings.TrimSpace(draft.Description) == "" {
		v.Add("description", "can't be blank")
	}
	if strings.TrimSpace(draft.Body) == "" {
		v.Add("body", "can't be blank")
	}
	return v.Err()
}

// validateUpdate accumulates every violated field of an article update.
// Absent fields are not checked.
func (av *articleValidator) validateUpdate(upd *domain.ArticleUpdate) error {
	var v errs.Violations
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		v.Add("title", "can't be blank")
	}
	if upd.Description != nil && strings.TrimSpace(*upd.Description) == "" {
		v.Add("description", "can't be blank")
	}
	if upd.Body != nil && strings.TrimSpace(*upd.Body) == "" {
		v.Add("body", "can't be blank")
	}
	return v.Err()
}

// insertWithSlug stamps a slug onto the article and inserts it,
// retrying with a fresh suffix while the slug collides with an existing
// one. The unique index catches collisions the lookup raced past.
func (as *ArticleService) insertWithSlug(ctx context.Context, article *domain.Article) error {
	base := slugify(article.Title)
	for attempt := 0; attempt < slugMaxAttempts; attempt++ {
		article.Slug = base + "-" + as.slugSuffix()

		taken, err := as.slugTaken(ctx, article.Slug)
		if err != nil {
			return err
		}
		if taken {
			continue
		}

		err = as.db.WithContext(ctx).Create(article).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return err
	}
	return errs.Errorf(errs.EINTERNAL, "Could not generate a unique slug.")
}

// bySlug retrieves an article record by slug.
func (ag *articleGorm) bySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var article domain.Article
	err := ag.db.WithContext(ctx).Where("slug = ?", slug).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "Article not found.")
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (ag *articleGorm) slugTaken(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := ag.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

func (ag *articleGorm) save(ctx context.Context, article *domain.Article) error {
	return ag.db.WithContext(ctx).Save(article).Error
}

func (ag *articleGorm) deleteByID(ctx context.Context, id int) error {
	return ag.db.WithContext(ctx).Delete(&domain.Article{}, id).Error
}

// nonAlnum matches every run of characters that doesn't belong in a slug.
var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases a title and replaces everything non-alphanumeric
// with single hyphens.
func slugify(title string) string {
	slug := nonAlnum.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// randBase36 generates the random slug suffix.
func randBase36() string {
	b := make([]byte, slugSuffixLen)
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return string(b)
}

// pagination applies the default page size.
func pagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func emptyList() *domain.ArticleList {
	return &domain.ArticleList{Articles: []domain.Article{}, ArticlesCount: 0}
}
