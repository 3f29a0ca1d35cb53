package handler

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/application/notification"
	"github.com/Eldan-star/ResearchCollab/internal/config"
	"github.com/Eldan-star/ResearchCollab/internal/domain"
	jwtinfra "github.com/Eldan-star/ResearchCollab/internal/infrastructure/jwt"
	"github.com/Eldan-star/ResearchCollab/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockNotificationSvc struct{ mock.Mock }

func (m *mockNotificationSvc) Create(ctx context.Context, req notification.CreateRequest) (*domain.Notification, error) {
	args := m.Called(ctx, req)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationSvc) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if ns, _ := args.Get(0).([]domain.Notification); ns != nil {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationSvc) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationSvc) MarkRead(ctx context.Context, userID, notificationID string) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *mockNotificationSvc) MarkAllRead(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given userID and role.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, role string) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, role, "sess1")
	require.NoError(t, err)
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

func feedRows(n int) []domain.Notification {
	out := make([]domain.Notification, n)
	for i := range out {
		out[i] = domain.Notification{NotificationID: string(rune('a' + i)), UserID: "u1", Type: domain.NotificationGeneric}
	}
	return out
}

// --- List tests ---

func TestList_MissingClaims(t *testing.T) {
	svc := &mockNotificationSvc{}
	h := NewNotificationHandler(svc, 10)
	r := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
	rr := httptest.NewRecorder()
	h.List(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestList_FullPageHasMore(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("ListPage", mock.Anything, "u1", 1, 10).Return(feedRows(10), nil)
	svc.On("CountUnread", mock.Anything, "u1").Return(3, nil)
	h := NewNotificationHandler(svc, 10)

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications", "u1", domain.RoleContributor)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp NotificationPageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Page)
	assert.True(t, resp.HasMore)
	assert.Equal(t, 3, resp.Unread)
	assert.Len(t, resp.Data, 10)
	svc.AssertExpectations(t)
}

func TestList_ShortPageNoMore(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("ListPage", mock.Anything, "u1", 2, 10).Return(feedRows(4), nil)
	svc.On("CountUnread", mock.Anything, "u1").Return(0, nil)
	h := NewNotificationHandler(svc, 10)

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications?page=2", "u1", domain.RoleContributor)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp NotificationPageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Page)
	assert.False(t, resp.HasMore)
}

func TestList_InvalidPageDefaultsToFirst(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("ListPage", mock.Anything, "u1", 1, 10).Return(feedRows(1), nil)
	svc.On("CountUnread", mock.Anything, "u1").Return(0, nil)
	h := NewNotificationHandler(svc, 10)

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications?page=junk", "u1", domain.RoleContributor)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertCalled(t, "ListPage", mock.Anything, "u1", 1, 10)
}

// --- UnreadCount tests ---

func TestUnreadCount_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("CountUnread", mock.Anything, "u1").Return(7, nil)
	h := NewNotificationHandler(svc, 10)

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications/unread-count", "u1", domain.RoleContributor)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.UnreadCount), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]int
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 7, resp["unread"])
}

// --- MarkAsRead tests ---

func TestMarkAsRead_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("MarkRead", mock.Anything, "u1", "n-1").Return(nil)
	h := NewNotificationHandler(svc, 10)

	r := bearerReq(t, p, http.MethodPut, "/v1/notifications/n-1/read", "u1", domain.RoleContributor)
	r = withChiID(r, "n-1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkAsRead), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestMarkAsRead_ForeignRowForbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("MarkRead", mock.Anything, "u1", "n-2").Return(domain.ErrForbidden)
	h := NewNotificationHandler(svc, 10)

	r := bearerReq(t, p, http.MethodPut, "/v1/notifications/n-2/read", "u1", domain.RoleContributor)
	r = withChiID(r, "n-2")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkAsRead), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

// --- MarkAllAsRead tests ---

func TestMarkAllAsRead_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("MarkAllRead", mock.Anything, "u1").Return(nil)
	h := NewNotificationHandler(svc, 10)

	r := bearerReq(t, p, http.MethodPut, "/v1/notifications/read-all", "u1", domain.RoleContributor)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkAllAsRead), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
