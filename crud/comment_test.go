package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/errs"
)

func TestAddComment(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")
	article := createArticle(t, s, authedCtx(jake), "Discuss")

	comment, err := s.Comment.Add(authedCtx(anna), article.Slug, "First!")
	require.NoError(t, err)
	assert.Equal(t, "First!", comment.Body)
	require.NotNil(t, comment.Author)
	assert.Equal(t, "anna", comment.Author.Username)
}

func TestAddComment_RequiresAuth(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	article := createArticle(t, s, authedCtx(jake), "Discuss")

	_, err := s.Comment.Add(context.Background(), article.Slug, "First!")
	require.Error(t, err)
	assert.Equal(t, errs.EUNAUTHORIZED, errs.ErrorCode(err))
}

func TestAddComment_UnknownArticle(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")

	_, err := s.Comment.Add(authedCtx(jake), "no-such-slug", "First!")
	require.Error(t, err)
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}

func TestAddComment_BlankBody(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	article := createArticle(t, s, authedCtx(jake), "Discuss")

	_, err := s.Comment.Add(authedCtx(jake), article.Slug, "   ")
	require.Error(t, err)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	assert.Equal(t, "can't be blank", errs.ErrorFields(err)["body"])
}

func TestCommentsByArticle_NewestFirst(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	article := createArticle(t, s, authedCtx(jake), "Discuss")
	ctx := authedCtx(jake)

	_, err := s.Comment.Add(ctx, article.Slug, "older")
	require.NoError(t, err)
	_, err = s.Comment.Add(ctx, article.Slug, "newer")
	require.NoError(t, err)

	comments, err := s.Comment.ByArticle(context.Background(), article.Slug, 0, 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "newer", comments[0].Body)
	assert.Equal(t, "older", comments[1].Body)
}

func TestCommentsByArticle_EmptyIsNotAnError(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	article := createArticle(t, s, authedCtx(jake), "Discuss")

	comments, err := s.Comment.ByArticle(context.Background(), article.Slug, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCommentsByArticle_CachedCopyKeepsIDs(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	article := createArticle(t, s, authedCtx(jake), "Discuss")
	ctx := authedCtx(jake)

	comment, err := s.Comment.Add(ctx, article.Slug, "keep my id")
	require.NoError(t, err)

	_, err = s.Comment.ByArticle(ctx, article.Slug, 0, 0)
	require.NoError(t, err)

	// Second read is cached. The comment and author ids are hidden
	// from API JSON, so a lossy cache encoding would zero them here.
	comments, err := s.Comment.ByArticle(ctx, article.Slug, 0, 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)
	assert.Equal(t, jake.ID, comments[0].AuthorID)
}

func TestUpdateComment_OnlyAuthorMay(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")
	article := createArticle(t, s, authedCtx(jake), "Discuss")

	comment, err := s.Comment.Add(authedCtx(anna), article.Slug, "mine")
	require.NoError(t, err)

	_, err = s.Comment.Update(authedCtx(jake), article.Slug, comment.ID, "hijacked")
	require.Error(t, err)
	assert.Equal(t, errs.EFORBIDDEN, errs.ErrorCode(err))

	updated, err := s.Comment.Update(authedCtx(anna), article.Slug, comment.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Body)
}

func TestRemoveComment(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	anna := registerUser(t, s, "anna")
	article := createArticle(t, s, authedCtx(jake), "Discuss")

	comment, err := s.Comment.Add(authedCtx(anna), article.Slug, "delete me")
	require.NoError(t, err)

	err = s.Comment.Remove(authedCtx(jake), article.Slug, comment.ID)
	require.Error(t, err)
	assert.Equal(t, errs.EFORBIDDEN, errs.ErrorCode(err))

	require.NoError(t, s.Comment.Remove(authedCtx(anna), article.Slug, comment.ID))

	comments, err := s.Comment.ByArticle(context.Background(), article.Slug, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestComment_WrongArticleScope(t *testing.T) {
	s, _ := newTestServices(t)
	jake := registerUser(t, s, "jake")
	first := createArticle(t, s, authedCtx(jake), "First")
	second := createArticle(t, s, authedCtx(jake), "Second")

	comment, err := s.Comment.Add(authedCtx(jake), first.Slug, "on the first")
	require.NoError(t, err)

	// A comment id is only addressable through its own article.
	_, err = s.Comment.Update(authedCtx(jake), second.Slug, comment.ID, "misdirected")
	require.Error(t, err)
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}
