package aggregate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/auth"
	"conduit/domain"
)

type fakeUsers struct {
	users map[int]domain.User
}

func (f *fakeUsers) ByIDs(_ context.Context, ids []int) ([]domain.User, error) {
	var out []domain.User
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

// fakeFavorites counts lookups so tests can assert the aggregator skips
// them for anonymous requests.
type fakeFavorites struct {
	mu        sync.Mutex
	favorited map[[2]int]bool
	counts    map[int]int
	hasCalls  int
}

func (f *fakeFavorites) Has(_ context.Context, articleID, userID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasCalls++
	return f.favorited[[2]int{articleID, userID}], nil
}

func (f *fakeFavorites) Count(_ context.Context, articleID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[articleID], nil
}

type fakeFollows struct {
	mu       sync.Mutex
	follows  map[[2]int]bool
	hasCalls int
}

func (f *fakeFollows) Has(_ context.Context, followerID, followeeID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasCalls++
	return f.follows[[2]int{followerID, followeeID}], nil
}

func newTestAggregator() (*Aggregator, *fakeFavorites, *fakeFollows) {
	users := &fakeUsers{users: map[int]domain.User{
		1: {ID: 1, Username: "jake", Bio: "bio", Image: "jake.png"},
		2: {ID: 2, Username: "anna"},
	}}
	favorites := &fakeFavorites{
		favorited: map[[2]int]bool{},
		counts:    map[int]int{},
	}
	follows := &fakeFollows{follows: map[[2]int]bool{}}
	return New(users, favorites, follows), favorites, follows
}

func TestPopulateArticles(t *testing.T) {
	agg, favorites, follows := newTestAggregator()
	viewer := &domain.User{ID: 9, Username: "viewer"}
	ctx := auth.SetUser(context.Background(), viewer)

	favorites.favorited[[2]int{10, 9}] = true
	favorites.counts[10] = 3
	follows.follows[[2]int{9, 1}] = true

	articles := []domain.Article{
		{ID: 10, AuthorID: 1, Title: "first"},
		{ID: 11, AuthorID: 2, Title: "second"},
	}
	require.NoError(t, agg.PopulateArticles(ctx, articles))

	require.NotNil(t, articles[0].Author)
	assert.Equal(t, "jake", articles[0].Author.Username)
	assert.True(t, articles[0].Author.Following)
	assert.True(t, articles[0].Favorited)
	assert.Equal(t, 3, articles[0].FavoritesCount)

	require.NotNil(t, articles[1].Author)
	assert.Equal(t, "anna", articles[1].Author.Username)
	assert.False(t, articles[1].Author.Following)
	assert.False(t, articles[1].Favorited)
	assert.Equal(t, 0, articles[1].FavoritesCount)
}

func TestPopulateArticles_AnonymousSkipsViewerLookups(t *testing.T) {
	agg, favorites, follows := newTestAggregator()

	articles := []domain.Article{{ID: 10, AuthorID: 1}}
	require.NoError(t, agg.PopulateArticles(context.Background(), articles))

	assert.False(t, articles[0].Favorited)
	require.NotNil(t, articles[0].Author)
	assert.False(t, articles[0].Author.Following)

	// Neither the favorited nor the following rule hit the lookups.
	assert.Equal(t, 0, favorites.hasCalls)
	assert.Equal(t, 0, follows.hasCalls)
}

func TestPopulateArticles_VanishedAuthorLeavesNil(t *testing.T) {
	agg, _, _ := newTestAggregator()

	articles := []domain.Article{{ID: 10, AuthorID: 404}}
	require.NoError(t, agg.PopulateArticles(context.Background(), articles))

	assert.Nil(t, articles[0].Author)
}

func TestPopulateArticles_EmptyBatch(t *testing.T) {
	agg, _, _ := newTestAggregator()
	require.NoError(t, agg.PopulateArticles(context.Background(), nil))
}

func TestPopulateArticles_DefaultImage(t *testing.T) {
	agg, _, _ := newTestAggregator()

	articles := []domain.Article{{ID: 10, AuthorID: 2}}
	require.NoError(t, agg.PopulateArticles(context.Background(), articles))

	require.NotNil(t, articles[0].Author)
	assert.Equal(t, defaultProfileImage, articles[0].Author.Image)
}

func TestPopulateComments(t *testing.T) {
	agg, _, follows := newTestAggregator()
	viewer := &domain.User{ID: 9, Username: "viewer"}
	ctx := auth.SetUser(context.Background(), viewer)
	follows.follows[[2]int{9, 2}] = true

	comments := []domain.Comment{
		{ID: 1, AuthorID: 1, Body: "a"},
		{ID: 2, AuthorID: 2, Body: "b"},
	}
	require.NoError(t, agg.PopulateComments(ctx, comments))

	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "jake", comments[0].Author.Username)
	assert.False(t, comments[0].Author.Following)

	require.NotNil(t, comments[1].Author)
	assert.True(t, comments[1].Author.Following)
}

func TestProfile(t *testing.T) {
	agg, _, follows := newTestAggregator()
	target := &domain.User{ID: 1, Username: "jake", Image: "jake.png"}

	profile, err := agg.Profile(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "jake", profile.Username)
	assert.False(t, profile.Following)
	assert.Equal(t, 0, follows.hasCalls)

	viewer := &domain.User{ID: 9}
	follows.follows[[2]int{9, 1}] = true
	profile, err = agg.Profile(auth.SetUser(context.Background(), viewer), target)
	require.NoError(t, err)
	assert.True(t, profile.Following)
}

func TestPopulateArticles_SharedAuthorsAreLookedUpOnce(t *testing.T) {
	agg, _, follows := newTestAggregator()
	viewer := &domain.User{ID: 9}
	ctx := auth.SetUser(context.Background(), viewer)

	// Three articles, one distinct author: one following lookup.
	articles := []domain.Article{
		{ID: 10, AuthorID: 1},
		{ID: 11, AuthorID: 1},
		{ID: 12, AuthorID: 1},
	}
	require.NoError(t, agg.PopulateArticles(ctx, articles))
	assert.Equal(t, 1, follows.hasCalls)
}
