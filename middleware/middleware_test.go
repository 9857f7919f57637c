package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/database"
	"github.com/akinalp/dmrelay/handlers"
	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/repository"
	"github.com/akinalp/dmrelay/services"
)

func newAuth(t *testing.T) (services.AuthService, repository.UserRepository) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	users := repository.NewSQLiteUserRepo(db.Conn)
	return services.NewAuthService(users, "mw-secret", 5), users
}

// echoUser, context'teki kullanıcının ID'sini yazar.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	user, ok := handlers.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(user.ID))
})

func TestRequireAuth(t *testing.T) {
	auth, users := newAuth(t)
	token, err := auth.IssueAccessToken(&models.User{ID: "u1", Username: "neo"})
	require.NoError(t, err)

	h := NewAuthMiddleware(auth).Require(echoUser)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u1", rec.Body.String())
			}
		})
	}

	// İlk istek kullanıcı kaydını oluşturdu.
	user, err := users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "neo", user.Username)
}

func TestPlatformAdmin(t *testing.T) {
	h := NewPlatformAdminMiddleware().Require(echoUser)

	serve := func(user *models.User) int {
		req := httptest.NewRequest(http.MethodPut, "/", nil)
		if user != nil {
			req = req.WithContext(handlers.WithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&models.User{ID: "u1"}))
	assert.Equal(t, http.StatusOK, serve(&models.User{ID: "root", IsAdmin: true}))
}
