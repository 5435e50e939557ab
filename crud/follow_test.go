package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/errs"
)

func TestFollowAdd(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")
	ctx := context.Background()

	require.NoError(t, s.Follow.Add(ctx, jake.ID, anna.ID))

	has, err := s.Follow.Has(ctx, jake.ID, anna.ID)
	require.NoError(t, err)
	assert.True(t, has)

	// The relation is directed; anna does not follow jake back.
	has, err = s.Follow.Has(ctx, anna.ID, jake.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFollowAdd_SelfFollowIsAConflict(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")

	err := s.Follow.Add(context.Background(), jake.ID, jake.ID)
	require.Error(t, err)
	assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
}

func TestFollowAdd_DuplicateIsAConflict(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")
	ctx := context.Background()

	require.NoError(t, s.Follow.Add(ctx, jake.ID, anna.ID))

	err := s.Follow.Add(ctx, jake.ID, anna.ID)
	require.Error(t, err)
	assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
}

func TestFollowRemove_AbsentIsAConflict(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")

	err := s.Follow.Remove(context.Background(), jake.ID, anna.ID)
	require.Error(t, err)
	assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
}

func TestFollowHas_InvalidatedByUnfollow(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")
	ctx := context.Background()

	require.NoError(t, s.Follow.Add(ctx, jake.ID, anna.ID))
	has, err := s.Follow.Has(ctx, jake.ID, anna.ID)
	require.NoError(t, err)
	require.True(t, has)

	// The cached answer must not outlive the unfollow.
	require.NoError(t, s.Follow.Remove(ctx, jake.ID, anna.ID))
	has, err = s.Follow.Has(ctx, jake.ID, anna.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFollowCount(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")
	mark := registerUser(t, s, "mark")
	ctx := context.Background()

	require.NoError(t, s.Follow.Add(ctx, jake.ID, anna.ID))
	require.NoError(t, s.Follow.Add(ctx, mark.ID, anna.ID))

	count, err := s.Follow.Count(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFolloweeIDs(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")
	mark := registerUser(t, s, "mark")
	ctx := context.Background()

	ids, err := s.Follow.FolloweeIDs(ctx, jake.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.Follow.Add(ctx, jake.ID, anna.ID))
	require.NoError(t, s.Follow.Add(ctx, jake.ID, mark.ID))

	ids, err = s.Follow.FolloweeIDs(ctx, jake.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{anna.ID, mark.ID}, ids)
}
