package crud

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"conduit/aggregate"
	"conduit/auth"
	"conduit/cache"
	"conduit/domain"
	"conduit/errs"
)

// UserService manages Users and profiles. It implements the
// domain.UserService interface.
type UserService struct {
	userValidator
	agg     *aggregate.Aggregator
	follows domain.FollowService
	cache   cache.Cache
	bus     *cache.Bus
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userGorm.
// Otherwise, it returns the error of the validation that has failed.
type userValidator struct {
	usernameRegex *regexp.Regexp
	emailRegex    *regexp.Regexp
	userGorm
}

// userGorm runs CRUD operations on the database using incoming User
// data. It assumes that data has been validated.
type userGorm struct {
	db *gorm.DB
}

// NewUserService returns an instance of UserService. The aggregator is
// wired in after construction because it in turn looks users up through
// this service.
func NewUserService(db *gorm.DB, follows domain.FollowService, c cache.Cache, bus *cache.Bus) *UserService {
	return &UserService{
		userValidator: userValidator{
			usernameRegex: regexp.MustCompile(`^[a-zA-Z0-9]+$`),
			emailRegex:    regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,16}$`),
			userGorm: userGorm{
				db: db,
			},
		},
		follows: follows,
		cache:   c,
		bus:     bus,
	}
}

// SetAggregator wires the relationship aggregator. Must be called once
// before the service handles requests.
func (us *UserService) SetAggregator(agg *aggregate.Aggregator) {
	us.agg = agg
}

// Ensure the UserService struct properly implements the domain.UserService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.UserService = &UserService{}

// Register creates a new account. Validation enumerates every violated
// field; username and email uniqueness are pre-checked against the
// store and reported per field as well, like the original API does.
func (us *UserService) Register(ctx context.Context, reg *domain.UserRegistration) (*domain.User, error) {
	if err := us.validateRegistration(reg); err != nil {
		return nil, err
	}
	if err := us.usernameIsAvail(ctx, reg.Username, 0); err != nil {
		return nil, err
	}
	if err := us.emailIsAvail(ctx, reg.Email, 0); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     reg.Username,
		Email:        strings.ToLower(strings.TrimSpace(reg.Email)),
		PasswordHash: string(hash),
		Bio:          reg.Bio,
		Image:        reg.Image,
	}
	if err := us.insert(ctx, user); err != nil {
		return nil, err
	}
	us.bus.Changed(ctx, "users")
	return user, nil
}

// Login checks a submitted email address and password for existence and
// correctness. Failures surface as per-field validation errors so the
// client can render them next to the form fields.
func (us *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := us.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil, errs.Invalidf("email", "is not found")
		}
		return nil, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errs.Invalidf("password", "is invalid")
		}
		return nil, err
	}
	return user, nil
}

// Update saves changes to the given user's account. Nil fields are left
// unchanged. Uniqueness pre-checks exclude the user itself.
func (us *UserService) Update(ctx context.Context, id int, upd *domain.UserUpdate) (*domain.User, error) {
	if err := us.validateUpdate(upd); err != nil {
		return nil, err
	}
	if upd.Username != nil {
		if err := us.usernameIsAvail(ctx, *upd.Username, id); err != nil {
			return nil, err
		}
	}
	if upd.Email != nil {
		if err := us.emailIsAvail(ctx, *upd.Email, id); err != nil {
			return nil, err
		}
	}

	user, err := us.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if upd.Image != nil {
		user.Image = *upd.Image
	}
	if upd.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if err := us.save(ctx, user); err != nil {
		return nil, err
	}
	us.bus.Changed(ctx, "users")
	return user, nil
}

// Me returns a fresh copy of the current user's account, cached per
// token until a user change invalidates it.
func (us *UserService) Me(ctx context.Context) (*domain.User, error) {
	current := auth.GetUser(ctx)
	if current == nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}

	key := cache.Key("users.me", "token="+auth.GetToken(ctx))
	var cached domain.UserRecord
	if ok, err := us.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached.User(), nil
	}

	user, err := us.ByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	us.cache.Set(ctx, key, user.Record(), readTTL)
	return user, nil
}

// Profile returns the public profile of the named user as seen by the
// current (possibly anonymous) user. Cached per (token, username).
func (us *UserService) Profile(ctx context.Context, username string) (*domain.Profile, error) {
	key := cache.Key("users.profile", "token="+auth.GetToken(ctx), "username="+username)
	var cached domain.Profile
	if ok, err := us.cache.Get(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	user, err := us.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	profile, err := us.agg.Profile(ctx, user)
	if err != nil {
		return nil, err
	}
	us.cache.Set(ctx, key, profile, readTTL)
	return profile, nil
}

// Follow makes the current user follow the named user and returns the
// resulting profile.
func (us *UserService) Follow(ctx context.Context, username string) (*domain.Profile, error) {
	return us.setFollowing(ctx, username, us.follows.Add)
}

// Unfollow makes the current user unfollow the named user and returns
// the resulting profile.
func (us *UserService) Unfollow(ctx context.Context, username string) (*domain.Profile, error) {
	return us.setFollowing(ctx, username, us.follows.Remove)
}

func (us *UserService) setFollowing(ctx context.Context, username string, change func(context.Context, int, int) error) (*domain.Profile, error) {
	current := auth.GetUser(ctx)
	if current == nil {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in.")
	}
	target, err := us.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := change(ctx, current.ID, target.ID); err != nil {
		return nil, err
	}
	return us.agg.Profile(ctx, target)
}

// validateRegistration accumulates every violated field of a
// registration payload.
func (uv *userValidator) validateRegistration(reg *domain.UserRegistration) error {
	var v errs.Violations
	uv.checkUsername(&v, reg.Username, true)
	uv.checkEmail(&v, reg.Email, true)
	uv.checkPassword(&v, reg.Password, true)
	return v.Err()
}

// validateUpdate accumulates every violated field of an update payload.
// Absent fields are not checked.
func (uv *userValidator) validateUpdate(upd *domain.UserUpdate) error {
	var v errs.Violations
	if upd.Username != nil {
		uv.checkUsername(&v, *upd.Username, false)
	}
	if upd.Email != nil {
		uv.checkEmail(&v, *upd.Email, false)
	}
	if upd.Password != nil {
		uv.checkPassword(&v, *upd.Password, false)
	}
	return v.Err()
}

func (uv *userValidator) checkUsername(v *errs.Violations, username string, required bool) {
	if username == "" {
		if required {
			v.Add("username", "is required")
		}
		return
	}
	if utf8.RuneCountInString(username) < 2 {
		v.Add("username", "must be at least 2 characters long")
		return
	}
	if !uv.usernameRegex.MatchString(username) {
		v.Add("username", "may only contain letters and numbers")
	}
}

func (uv *userValidator) checkEmail(v *errs.Violations, email string, required bool) {
	if email == "" {
		if required {
			v.Add("email", "is required")
		}
		return
	}
	if !uv.emailRegex.MatchString(strings.ToLower(strings.TrimSpace(email))) {
		v.Add("email", "is not valid")
	}
}

func (uv *userValidator) checkPassword(v *errs.Violations, password string, required bool) {
	if password == "" {
		if required {
			v.Add("password", "is required")
		}
		return
	}
	if utf8.RuneCountInString(password) < 6 {
		v.Add("password", "must be at least 6 characters long")
	}
}

// usernameIsAvail makes sure that a username is not yet taken by
// somebody else.
func (uv *userValidator) usernameIsAvail(ctx context.Context, username string, selfID int) error {
	existing, err := uv.byUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return errs.Invalidf("username", "is already taken")
	}
	return nil
}

// emailIsAvail makes sure that an email address is not yet taken by
// somebody else.
func (uv *userValidator) emailIsAvail(ctx context.Context, email string, selfID int) error {
	existing, err := uv.byEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return errs.Invalidf("email", "is already taken")
	}
	return nil
}

// ByID retrieves a User record by ID.
func (us *UserService) ByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	err := us.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "User not found.")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ByIDs batch-retrieves User records. Ids without a matching record are
// silently absent from the result, which is what lets the aggregator
// leave a vanished author unpopulated.
func (us *UserService) ByIDs(ctx context.Context, ids []int) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []domain.User
	err := us.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ByEmail retrieves a User record by email.
func (us *UserService) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := us.byEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "User not found.")
	}
	return user, err
}

// ByUsername retrieves a User record by username.
func (us *UserService) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := us.byUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Errorf(errs.ENOTFOUND, "User not found.")
	}
	return user, err
}

func (ug *userGorm) byEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ug *userGorm) byUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// insert stores the data from the User object in a new database record.
// The unique indexes back up the availability pre-checks under
// concurrent registration.
func (ug *userGorm) insert(ctx context.Context, user *domain.User) error {
	err := ug.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Invalidf("username", "is already taken")
	}
	return err
}

// save persists changes to an existing user record.
func (ug *userGorm) save(ctx context.Context, user *domain.User) error {
	err := ug.db.WithContext(ctx).Save(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Invalidf("username", "is already taken")
	}
	return err
}
