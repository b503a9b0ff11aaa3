package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/auth"
)

const secret = "test-secret"

func protected(roles ...string) http.Handler {
	return auth.Middleware(secret, roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(userID))
	}))
}

func call(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareInjectsUserID(t *testing.T) {
	token, err := auth.IssueToken(secret, "user-42", auth.RoleTraveler, time.Hour)
	require.NoError(t, err)

	rec := call(protected(), "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-42", rec.Body.String())
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	expired, err := auth.IssueToken(secret, "u", auth.RoleTraveler, -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.IssueToken("other-secret", "u", auth.RoleTraveler, time.Hour)
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, call(protected(), "").Code)
	require.Equal(t, http.StatusUnauthorized, call(protected(), "Basic abc").Code)
	require.Equal(t, http.StatusUnauthorized, call(protected(), "Bearer "+expired).Code)
	require.Equal(t, http.StatusUnauthorized, call(protected(), "Bearer "+foreign).Code)
}

func TestMiddlewareEnforcesRoles(t *testing.T) {
	token, err := auth.IssueToken(secret, "u", auth.RoleTraveler, time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, call(protected(auth.RoleAdmin), "Bearer "+token).Code)

	admin, err := auth.IssueToken(secret, "root", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, call(protected(auth.RoleAdmin), "bearer "+admin).Code)
}

func TestIssueTokenRequiresSecretAndUser(t *testing.T) {
	_, err := auth.IssueToken("", "u", auth.RoleTraveler, time.Hour)
	require.Error(t, err)
	_, err = auth.IssueToken(secret, "", auth.RoleTraveler, time.Hour)
	require.Error(t, err)
}
