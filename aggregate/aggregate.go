// Package aggregate resolves cross-entity relationships (author
// profiles, favorited flags, favorite counts, following flags) for
// entities about to be returned to a client. Lookups go through narrow
// interfaces so the aggregator works the same whether the services live
// in-process or behind RPC.
package aggregate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"conduit/auth"
	"conduit/domain"
)

// defaultProfileImage is substituted when a user never set an avatar.
const defaultProfileImage = "/assets/images/smiley-cyrus.jpg"

// UserLookup batch-fetches users by id. Ids with no matching user are
// simply absent from the result.
type UserLookup interface {
	ByIDs(ctx context.Context, ids []int) ([]domain.User, error)
}

// FavoriteLookup answers favorite existence and count queries.
type FavoriteLookup interface {
	Has(ctx context.Context, articleID, userID int) (bool, error)
	Count(ctx context.Context, articleID int) (int, error)
}

// FollowLookup answers follow existence queries.
type FollowLookup interface {
	Has(ctx context.Context, followerID, followeeID int) (bool, error)
}

// Aggregator populates declared relationship fields on entities, in
// place. The current user is taken from the context; without one, the
// favorited and following rules resolve to false without issuing any
// lookups.
type Aggregator struct {
	users     UserLookup
	favorites FavoriteLookup
	follows   FollowLookup
}

// New returns an Aggregator using the given lookups.
func New(users UserLookup, favorites FavoriteLookup, follows FollowLookup) *Aggregator {
	return &Aggregator{
		users:     users,
		favorites: favorites,
		follows:   follows,
	}
}

// PopulateArticles resolves author, favorited, favoritesCount and
// author.following for every article in the slice. The rules have no
// ordering dependency on each other, so they all fan out concurrently;
// within a rule the per-article lookups fan out as well. A vanished
// author leaves the Author field nil rather than failing the batch.
func (a *Aggregator) PopulateArticles(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}
	user := auth.GetUser(ctx)

	authorIDs := make([]int, 0, len(articles))
	seen := map[int]bool{}
	for i := range articles {
		if !seen[articles[i].AuthorID] {
			seen[articles[i].AuthorID] = true
			authorIDs = append(authorIDs, articles[i].AuthorID)
		}
	}

	var profiles map[int]domain.Profile
	var following map[int]bool
	favorited := make([]bool, len(articles))
	counts := make([]int, len(articles))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		profiles, err = a.profilesByID(gctx, authorIDs)
		return err
	})

	g.Go(func() error {
		var err error
		following, err = a.followingByID(gctx, user, authorIDs)
		return err
	})

	g.Go(func() error {
		if user == nil {
			return nil
		}
		fg, fctx := errgroup.WithContext(gctx)
		for i := range articles {
			i := i
			fg.Go(func() error {
				has, err := a.favorites.Has(fctx, articles[i].ID, user.ID)
				if err != nil {
					return err
				}
				favorited[i] = has
				return nil
			})
		}
		return fg.Wait()
	})

	g.Go(func() error {
		cg, cctx := errgroup.WithContext(gctx)
		for i := range articles {
			i := i
			cg.Go(func() error {
				count, err := a.favorites.Count(cctx, articles[i].ID)
				if err != nil {
					return err
				}
				counts[i] = count
				return nil
			})
		}
		return cg.Wait()
	})

	if err := g.Wait(); err != nil {
		return err
	}

	for i := range articles {
		if profile, ok := profiles[articles[i].AuthorID]; ok {
			profile.Following = following[articles[i].AuthorID]
			articles[i].Author = &profile
		}
		articles[i].Favorited = favorited[i]
		articles[i].FavoritesCount = counts[i]
	}
	return nil
}

// PopulateComments resolves author and author.following for every
// comment in the slice.
func (a *Aggregator) PopulateComments(ctx context.Context, comments []domain.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	user := auth.GetUser(ctx)

	authorIDs := make([]int, 0, len(comments))
	seen := map[int]bool{}
	for i := range comments {
		if !seen[comments[i].AuthorID] {
			seen[comments[i].AuthorID] = true
			authorIDs = append(authorIDs, comments[i].AuthorID)
		}
	}

	var profiles map[int]domain.Profile
	var following map[int]bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = a.profilesByID(gctx, authorIDs)
		return err
	})
	g.Go(func() error {
		var err error
		following, err = a.followingByID(gctx, user, authorIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range comments {
		if profile, ok := profiles[comments[i].AuthorID]; ok {
			profile.Following = following[comments[i].AuthorID]
			comments[i].Author = &profile
		}
	}
	return nil
}

// Profile projects a user to its public profile as seen by the current
// user, resolving the following flag.
func (a *Aggregator) Profile(ctx context.Context, target *domain.User) (*domain.Profile, error) {
	profile := profileOf(target)
	user := auth.GetUser(ctx)
	if user == nil {
		return &profile, nil
	}
	has, err := a.follows.Has(ctx, user.ID, target.ID)
	if err != nil {
		return nil, err
	}
	profile.Following = has
	return &profile, nil
}

// profilesByID batch-fetches the public profiles for a set of user ids.
func (a *Aggregator) profilesByID(ctx context.Context, ids []int) (map[int]domain.Profile, error) {
	users, err := a.users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	profiles := make(map[int]domain.Profile, len(users))
	for i := range users {
		profiles[users[i].ID] = profileOf(&users[i])
	}
	return profiles, nil
}

// followingByID resolves the following flag for a set of user ids,
// concurrently. Without a current user every flag is false and no
// lookups are issued.
func (a *Aggregator) followingByID(ctx context.Context, user *domain.User, ids []int) (map[int]bool, error) {
	following := make(map[int]bool, len(ids))
	if user == nil {
		return following, nil
	}

	results := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			has, err := a.follows.Has(gctx, user.ID, id)
			if err != nil {
				return err
			}
			results[i] = has
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, id := range ids {
		following[id] = results[i]
	}
	return following, nil
}

func profileOf(user *domain.User) domain.Profile {
	image := user.Image
	if image == "" {
		image = defaultProfileImage
	}
	return domain.Profile{
		Username: user.Username,
		Bio:      user.Bio,
		Image:    image,
	}
}
