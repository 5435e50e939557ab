package domain

import (
	"context"
	"time"
)

// Follow represents a self-referential many-to-many relationship between
// two users. The FollowerID is the user that follows, the FolloweeID the
// user being followed. The pair is unique at the store boundary.
type Follow struct {
	ID         int       `json:"id"`
	FollowerID int       `json:"follower_id" gorm:"notNull;uniqueIndex:idx_follows_follower_followee"`
	FolloweeID int       `json:"followee_id" gorm:"notNull;uniqueIndex:idx_follows_follower_followee"`
	CreatedAt  time.Time `json:"created_at"`
}

// FollowService is a set of methods to manipulate and work with the
// Follow model.
type FollowService interface {
	Add(ctx context.Context, followerID, followeeID int) error
	Remove(ctx context.Context, followerID, followeeID int) error
	Has(ctx context.Context, followerID, followeeID int) (bool, error)
	Count(ctx context.Context, followeeID int) (int, error)
	FolloweeIDs(ctx context.Context, followerID int) ([]int, error)
}
