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

// FollowService manages Follows. It implements the domain.FollowService
// interface.
type FollowService struct {
	followValidator
	cache cache.Cache
	bus   *cache.Bus
}

// followValidator runs validations on incoming Follow data.
// On success, it passes the data on to followGorm.
// Otherwise, it returns the error of the validation that has failed.
type followValidator struct {
	followGorm
}

// followGorm runs CRUD operations on the database using incoming Follow
// data. It assumes that data has been validated.
type followGorm struct {
	db *gorm.DB
}

// NewFollowService returns an instance of FollowService.
func NewFollowService(db *gorm.DB, c cache.Cache, bus *cache.Bus) *FollowService {
	return &FollowService{
		followValidator: followValidator{
			followGorm{db: db},
		},
		cache: c,
		bus:   bus,
	}
}

// Ensure the FollowService struct properly implements the domain.FollowService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.FollowService = &FollowService{}

// Add creates a follow relationship. Following yourself or following
// somebody twice is a domain conflict.
func (fs *FollowService) Add(ctx context.Context, followerID, followeeID int) error {
	if err := fs.validateAdd(ctx, followerID, followeeID); err != nil {
		return err
	}
	if err := fs.insert(ctx, followerID, followeeID); err != nil {
		return err
	}
	fs.bus.Changed(ctx, "follows")
	return nil
}

// Remove deletes a follow relationship. Unfollowing somebody who was
// never followed is a domain conflict.
func (fs *FollowService) Remove(ctx context.Context, followerID, followeeID int) error {
	follow, err := fs.byPair(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if follow == nil {
		return errs.Errorf(errs.ECONFLICT, "User has not been followed yet.")
	}
	if err := fs.deleteByID(ctx, follow.ID); err != nil {
		return err
	}
	fs.bus.Changed(ctx, "follows")
	return nil
}

// Has reports whether follower follows followee. The answer is cached
// under the pair until a follow change invalidates it.
func (fs *FollowService) Has(ctx context.Context, followerID, followeeID int) (bool, error) {
	key := cache.Key("follows.has",
		"follower="+strconv.Itoa(followerID),
		"followee="+strconv.Itoa(followeeID))
	var cached bool
	if ok, err := fs.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	follow, err := fs.byPair(ctx, followerID, followeeID)
	if err != nil {
		return false, err
	}
	has := follow != nil
	fs.cache.Set(ctx, key, has, readTTL)
	return has, nil
}

// Count returns the number of followers of followee.
func (fs *FollowService) Count(ctx context.Context, followeeID int) (int, error) {
	key := cache.Key("follows.count", "followee="+strconv.Itoa(followeeID))
	var cached int
	if ok, err := fs.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	var count int64
	err := fs.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("followee_id = ?", followeeID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	fs.cache.Set(ctx, key, int(count), readTTL)
	return int(count), nil
}

// FolloweeIDs returns the deduplicated ids of every user the follower
// follows. It is computed fresh per request: the feed depends on it and
// follow relationships change independently.
func (fs *FollowService) FolloweeIDs(ctx context.Context, followerID int) ([]int, error) {
	var ids []int
	err := fs.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("follower_id = ?", followerID).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	out := ids[:0]
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// validateAdd runs the pre-checks for creating a follow.
func (fv *followValidator) validateAdd(ctx context.Context, followerID, followeeID int) error {
	if followerID == followeeID {
		return errs.Errorf(errs.ECONFLICT, "You cannot follow yourself.")
	}
	follow, err := fv.byPair(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if follow != nil {
		return errs.Errorf(errs.ECONFLICT, "User has already been followed.")
	}
	return nil
}

// byPair retrieves a follow record by its unique pair, or nil.
func (fg *followGorm) byPair(ctx context.Context, followerID, followeeID int) (*domain.Follow, error) {
	var follow domain.Follow
	err := fg.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		First(&follow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &follow, nil
}

// insert stores a new follow record. The unique index serializes a
// concurrent duplicate into a domain conflict even when the pre-check
// raced past it.
func (fg *followGorm) insert(ctx context.Context, followerID, followeeID int) error {
	follow := domain.Follow{FollowerID: followerID, FolloweeID: followeeID}
	err := fg.db.WithContext(ctx).Create(&follow).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Errorf(errs.ECONFLICT, "User has already been followed.")
	}
	return err
}

func (fg *followGorm) deleteByID(ctx context.Context, id int) error {
	return fg.db.WithContext(ctx).Delete(&domain.Follow{}, id).Error
}
