package domain

import (
	"context"
	"time"
)

// User represents a registered account. The password never leaves the
// service layer, only its bcrypt hash is stored.
type User struct {
	ID           int    `json:"-"`
	Username     string `json:"username" gorm:"uniqueIndex;size:64"`
	Email        string `json:"email" gorm:"uniqueIndex;size:255"`
	PasswordHash string `json:"-"`
	Bio          string `json:"bio"`
	Image        string `json:"image"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRecord is the cache projection of a User. The User struct itself
// hides ID and PasswordHash from JSON for API responses, which would
// zero them on a cache round trip; the record tags every field it
// carries. The password hash stays out of the cache on purpose, so a
// restored user cannot be used for password checks.
type UserRecord struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Record projects the user to its cache representation.
func (u *User) Record() UserRecord {
	return UserRecord{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Bio:       u.Bio,
		Image:     u.Image,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// User restores a domain User from the record.
func (r UserRecord) User() *User {
	return &User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Bio:       r.Bio,
		Image:     r.Image,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Profile is the public projection of a User, as seen by another
// (possibly anonymous) user.
type Profile struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// UserRegistration is the payload for creating a new account.
type UserRegistration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// UserUpdate holds modified account fields. Nil means "leave unchanged".
type UserUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

// UserService is a set of methods to manipulate and work with the User model.
// Follow and Unfollow act on behalf of the user attached to the context.
type UserService interface {
	ByID(ctx context.Context, id int) (*User, error)
	ByIDs(ctx context.Context, ids []int) ([]User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	Me(ctx context.Context) (*User, error)
	Register(ctx context.Context, reg *UserRegistration) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	Update(ctx context.Context, id int, upd *UserUpdate) (*User, error)
	Profile(ctx context.Context, username string) (*Profile, error)
	Follow(ctx context.Context, username string) (*Profile, error)
	Unfollow(ctx context.Context, username string) (*Profile, error)
}
