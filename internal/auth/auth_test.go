package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("test-secret", time.Hour)

	token, err := j.Sign(42)
	require.NoError(t, err)

	id, err := j.Verify(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
}

func TestJWTRejectsForeignSecret(t *testing.T) {
	token, err := NewJWT("one", time.Hour).Sign(42)
	require.NoError(t, err)

	_, err = NewJWT("two", time.Hour).Verify(token)
	require.Error(t, err)

	_, err = NewJWT("one", time.Hour).Verify("not-a-token")
	require.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	token, err := NewJWT("test-secret", -time.Minute).Sign(42)
	require.NoError(t, err)

	_, err = NewJWT("test-secret", time.Hour).Verify(token)
	require.Error(t, err)
}

func TestJWTRejectsForeignIssuer(t *testing.T) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "somebody-else",
		"sub": uint64(42),
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewJWT("test-secret", time.Hour).Verify(token)
	require.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	j := NewJWT("test-secret", time.Hour)
	var gotID uint64
	handler := RequireAuth(j)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = ClientIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me/platforms", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := j.Sign(7)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me/platforms", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 7, gotID)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/clients", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/clients", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/clients", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	require.True(t, ComparePassword(hash, "hunter22"))
	require.False(t, ComparePassword(hash, "hunter23"))
}
