package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ttys3/gitea-sso/internal/session"
)

type memStore struct {
	sessions map[string]session.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]session.Session)}
}

func (m *memStore) Create(_ context.Context, s session.Session) error {
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*session.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func testRouter(store session.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", NewAuthMiddleware(store).RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID)})
	})
	return r
}

func get(r *gin.Engine, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	store := newMemStore()
	_ = store.Create(context.Background(), session.Session{
		SessionID: "good",
		UserID:    "uid-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	_ = store.Create(context.Background(), session.Session{
		SessionID: "expired",
		UserID:    "uid-2",
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	r := testRouter(store)

	t.Run("no cookie", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "missing").Code)
	})

	t.Run("expired session rejected and deleted", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "expired").Code)
		_, ok := store.sessions["expired"]
		assert.False(t, ok)
	})

	t.Run("valid session passes with user id", func(t *testing.T) {
		w := get(r, "good")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "uid-1")
	})
}
