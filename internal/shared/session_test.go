package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "test_session", time.Hour, false)
}

func TestIssueAndLoadViaBearerHeader(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.ID)

	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(42), loaded.UserID)
	assert.Equal(t, sess.ID, loaded.ID)
}

func TestIssueAndLoadViaCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 7)
	require.NoError(t, err)

	res := httptest.NewRecorder()
	sm.WriteCookie(res, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range res.Result().Cookies() {
		req.AddCookie(c)
	}

	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(7), loaded.UserID)
}

func TestLoadWithoutTokenYieldsNil(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	loaded, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadUnknownTokenYieldsNil(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")

	loaded, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestDestroyInvalidatesToken(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 9)
	require.NoError(t, err)
	require.NoError(t, sm.Destroy(ctx, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.ID)

	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionContextRoundTrip(t *testing.T) {
	sess := &Session{ID: "abc", UserID: 3}
	ctx := ContextWithSession(context.Background(), sess)
	assert.Equal(t, sess, SessionFromContext(ctx))
	assert.Nil(t, SessionFromContext(context.Background()))
}
