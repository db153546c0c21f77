package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"access-service/internal/account"
	"access-service/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, store account.Store) (*gin.Engine, *token.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := token.NewManager("0123456789abcdef0123456789abcdef", time.Minute)
	h := NewHandler(newTestService(store), tokens, store)

	router := gin.New()
	// Session auth is irrelevant to these tests; token minting is not exercised.
	h.RegisterRoutes(router, func(c *gin.Context) { c.Next() })
	return router, tokens
}

func doJSON(router *gin.Engine, method, path, bearer, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminAPI_RequiresBearerToken(t *testing.T) {
	store := account.NewMemoryStore()
	router, _ := newTestRouter(t, store)

	w := doJSON(router, http.MethodGet, "/api/admin/pending", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAPI_RejectsNonAdminCaller(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	router, tokens := newTestRouter(t, store)

	require.NoError(t, store.CreateProfile(ctx, *staffUser))
	raw, err := tokens.Issue(staffUser.ID)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/api/admin/pending", raw, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminAPI_ApproveFlow(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	router, tokens := newTestRouter(t, store)

	require.NoError(t, store.CreateProfile(ctx, *plainAdmin))
	seedPending(t, store, "req-1", "b@x.com", time.Now())

	raw, err := tokens.Issue(plainAdmin.ID)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/api/admin/pending", raw, "")
	require.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Pending []struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Pending, 1)
	assert.Equal(t, "req-1", listing.Pending[0].ID)

	w = doJSON(router, http.MethodPost, "/api/admin/pending/req-1/approve", raw,
		`{"role":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/admin/pending", raw, "")
	require.Equal(t, http.StatusOK, w.Code)
	listing.Pending = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Empty(t, listing.Pending)
}

func TestAdminAPI_SuperAdminGrantForbidden(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	router, tokens := newTestRouter(t, store)

	require.NoError(t, store.CreateProfile(ctx, *plainAdmin))
	seedPending(t, store, "req-1", "b@x.com", time.Now())

	raw, err := tokens.Issue(plainAdmin.ID)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/api/admin/pending/req-1/approve", raw,
		`{"role":"super_admin"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The request is still pending.
	request, err := store.PendingByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, account.StatusPending, request.Status)
}

func TestAdminAPI_CreateAndDeleteUser(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	router, tokens := newTestRouter(t, store)

	require.NoError(t, store.CreateProfile(ctx, *plainAdmin))
	raw, err := tokens.Issue(plainAdmin.ID)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/api/users", raw,
		`{"email":"new@x.com","display_name":"New","role":"staff"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = doJSON(router, http.MethodDelete, "/api/users/"+created.ID, raw, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/users/"+created.ID, raw, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAPI_LastSuperAdminConflict(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	router, tokens := newTestRouter(t, store)

	require.NoError(t, store.CreateProfile(ctx, *superAdmin))
	raw, err := tokens.Issue(superAdmin.ID)
	require.NoError(t, err)

	w := doJSON(router, http.MethodDelete, "/api/users/"+superAdmin.ID, raw, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}
