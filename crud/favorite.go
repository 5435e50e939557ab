package crud

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"conduit/cache"
	"conduit/domain"
	"conduit/errs"
)

// FavoriteService manages Favorites. It implements the
// domain.FavoriteService interface.
type FavoriteService struct {
	favoriteValidator
	cache cache.Cache
	bus   *cache.Bus
}

// favoriteValidator runs validations on incoming Favorite data.
// On success, it passes the data on to favoriteGorm.
// Otherwise, it returns the error of the validation that has failed.
type favoriteValidator struct {
	favoriteGorm
}

// favoriteGorm runs CRUD operations on the database using incoming
// Favorite data. It assumes that data has been validated.
type favoriteGorm struct {
	db *gorm.DB
}

// NewFavoriteService returns an instance of FavoriteService.
func NewFavoriteService(db *gorm.DB, c cache.Cache, bus *cache.Bus) *FavoriteService {
	return &FavoriteService{
		favoriteValidator: favoriteValidator{
			favoriteGorm{db: db},
		},
		cache: c,
		bus:   bus,
	}
}

// Ensure the FavoriteService struct properly implements the domain.FavoriteService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.FavoriteService = &FavoriteService{}

// Add creates a favorite record. Favoriting an article twice is a
// domain conflict, whether caught by the pre-check or by the unique
// index under a race.
func (fs *FavoriteService) Add(ctx context.Context, articleID, userID int) error {
	if err := fs.validateAdd(ctx, articleID, userID); err != nil {
		return err
	}
	if err := fs.insert(ctx, articleID, userID); err != nil {
		return err
	}
	fs.bus.Changed(ctx, "favorites")
	return nil
}

// Remove deletes a favorite record. Unfavoriting an article that was
// never favorited is a domain conflict.
func (fs *FavoriteService) Remove(ctx context.Context, articleID, userID int) error {
	favorite, err := fs.byPair(ctx, articleID, userID)
	if err != nil {
		return err
	}
	if favorite == nil {
		return errs.Errorf(errs.ECONFLICT, "Article has not been favorited yet.")
	}
	if err := fs.deleteByID(ctx, favorite.ID); err != nil {
		return err
	}
	fs.bus.Changed(ctx, "favorites")
	return nil
}

// Has reports whether user has favorited article.
func (fs *FavoriteService) Has(ctx context.Context, articleID, userID int) (bool, error) {
	key := cache.Key("favorites.has",
		"article="+strconv.Itoa(articleID),
		"user="+strconv.Itoa(userID))
	var cached bool
	if ok, err := fs.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	favorite, err := fs.byPair(ctx, articleID, userID)
	if err != nil {
		return false, err
	}
	has := favorite != nil
	fs.cache.Set(ctx, key, has, readTTL)
	return has, nil
}

// Count returns the number of favorites of an article.
func (fs *FavoriteService) Count(ctx context.Context, articleID int) (int, error) {
	key := cache.Key("favorites.count", "article="+strconv.Itoa(articleID))
	var cached int
	if ok, err := fs.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	var count int64
	err := fs.db.WithContext(ctx).
		Model(&domain.Favorite{}).
		Where("article_id = ?", articleID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	fs.cache.Set(ctx, key, int(count), readTTL)
	return int(count), nil
}

// ArticleIDsByUser returns the ids of every article the user has
// favorited, for the favorited= listing filter.
func (fs *FavoriteService) ArticleIDsByUser(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := fs.db.WithContext(ctx).
		Model(&domain.Favorite{}).
		Where("user_id = ?", userID).
		Pluck("article_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RemoveByArticle deletes every favorite of an article. Called by the
// article service when the article itself is removed.
func (fs *FavoriteService) RemoveByArticle(ctx context.Context, articleID int) error {
	err := fs.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Delete(&domain.Favorite{}).Error
	if err != nil {
		return err
	}
	fs.bus.Changed(ctx, "favorites")
	return nil
}

// validateAdd runs the pre-checks for creating a favorite.
func (fv *favoriteValidator) validateAdd(ctx context.Context, articleID, userID int) error {
	favorite, err := fv.byPair(ctx, articleID, userID)
	if err != nil {
		return err
	}
	if favorite != nil {
		return errs.Errorf(errs.ECONFLICT, "Article has already been favorited.")
	}
	return nil
}

// byPair retrieves a favorite record by its unique pair, or nil.
func (fg *favoriteGorm) byPair(ctx context.Context, articleID, userID int) (*domain.Favorite, error) {
	var favorite domain.Favorite
	err := fg.db.WithContext(ctx).
		Where("article_id = ? AND user_id = ?", articleID, userID).
		First(&favorite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &favorite, nil
}

func (fg *favoriteGorm) insert(ctx context.Context, articleID, userID int) error {
	favorite := domain.Favorite{ArticleID: articleID, UserID: userID}
	err := fg.db.WithContext(ctx).Create(&favorite).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Errorf(errs.ECONFLICT, "Article has already been favorited.")
	}
	return err
}

func (fg *favoriteGorm) deleteByID(ctx context.Context, id int) error {
	return fg.db.WithContext(ctx).Delete(&domain.Favorite{}, id).Error
}
