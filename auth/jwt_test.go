package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/domain"
	"conduit/errs"
)

const testSecret = "test-secret"

func TestIssueAndVerifyToken(t *testing.T) {
	user := &domain.User{ID: 7, Username: "jake"}

	token, err := IssueToken(user, testSecret, time.Now)
	require.NoError(t, err)

	claims, err := VerifyToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.ID)
	assert.Equal(t, "jake", claims.Username)
}

func TestVerifyToken_Expired(t *testing.T) {
	user := &domain.User{ID: 7, Username: "jake"}

	// Issue a token whose whole lifetime lies in the past.
	past := func() time.Time { return time.Now().Add(-TokenLifetime - time.Hour) }
	token, err := IssueToken(user, testSecret, past)
	require.NoError(t, err)

	_, err = VerifyToken(token, testSecret)
	require.Error(t, err)
	assert.Equal(t, errs.EUNAUTHORIZED, errs.ErrorCode(err))
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	user := &domain.User{ID: 7, Username: "jake"}

	token, err := IssueToken(user, testSecret, time.Now)
	require.NoError(t, err)

	_, err = VerifyToken(token, "other-secret")
	require.Error(t, err)
	assert.Equal(t, errs.EUNAUTHORIZED, errs.ErrorCode(err))
}

func TestVerifyToken_Garbage(t *testing.T) {
	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := VerifyToken(token, testSecret)
		require.Error(t, err)
		assert.Equal(t, errs.EUNAUTHORIZED, errs.ErrorCode(err))
	}
}
