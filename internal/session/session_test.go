package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSession_PrefersPrimaryPair(t *testing.T) {
	st := NewMemoryStorage(map[string]string{
		KeyAccessToken: "primary",
		KeyAdminToken:  "legacy",
		KeyUser:        `{"id":"1","name":"Primary","role":"exporters"}`,
		KeyAdminUser:   `{"id":"2","name":"Legacy","role":"admin"}`,
	})

	s, err := GetSession(st)
	require.NoError(t, err)
	assert.Equal(t, "primary", s.Token)
	assert.Equal(t, "Primary", s.User.Name)
	assert.True(t, s.User.Role.Is(RoleExporter))
	assert.False(t, s.User.IsAdmin())
}

func TestGetSession_Malformed(t *testing.T) {
	st := NewMemoryStorage(map[string]string{KeyAccessToken: "t", KeyUser: "{{"})

	_, err := GetSession(st)
	assert.True(t, errors.Is(err, ErrMalformedUser))
}

func TestSetSession_WritesPrimaryOnly(t *testing.T) {
	st := NewMemoryStorage(map[string]string{KeyAdminToken: "old", KeyAdminUser: `{"role":"admin"}`})

	err := SetSession(st, &Session{Token: "new", User: User{ID: "u1", Name: "N", Email: "n@example.com", Role: RoleImporter}})
	require.NoError(t, err)

	snap := st.Snapshot()
	assert.Equal(t, "new", snap[KeyAccessToken])
	assert.JSONEq(t, `{"id":"u1","name":"N","email":"n@example.com","role":"importer"}`, snap[KeyUser])
	assert.NotContains(t, snap, KeyAdminToken)
	assert.NotContains(t, snap, KeyAdminUser)

	assert.Error(t, SetSession(st, &Session{}))
}

func TestClearSession_RemovesAllKeys(t *testing.T) {
	st := NewMemoryStorage(map[string]string{
		KeyAccessToken: "a", KeyUser: "{}", KeyAdminToken: "b", KeyAdminUser: "{}", "theme": "dark",
	})

	require.NoError(t, ClearSession(st))
	assert.Equal(t, map[string]string{"theme": "dark"}, st.Snapshot())
}

func TestNormalize_Idempotent(t *testing.T) {
	st := NewMemoryStorage(map[string]string{KeyAdminToken: "t1", KeyAdminUser: `{"role":"admin"}`})

	changed, err := Normalize(st)
	require.NoError(t, err)
	assert.True(t, changed)
	after := st.Snapshot()

	changed, err = Normalize(st)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, after, st.Snapshot())
}

func TestRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: "Exporters", want: RoleExporter},
		{in: " importer ", want: RoleImporter},
		{in: "inspectors", want: RoleInspector},
		{in: "farmer", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, "exporters", RoleExporter.Plural())
	assert.Equal(t, "admin", RoleAdmin.Plural())

	assert.True(t, Role("inspectors").Is(RoleInspector))
	assert.False(t, Role("Admin").Is(RoleAdmin))
	assert.False(t, Role("admins").Is(RoleAdmin))
	assert.False(t, Role(" admin").Is(RoleAdmin))
}

func TestCookieStorage_RoundTrip(t *testing.T) {
	userJSON := `{"role":"admin","name":"A B"}`
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: KeyAdminToken, Value: "t1"})
	req.AddCookie(&http.Cookie{Name: KeyAdminUser, Value: "%7B%22role%22%3A%22admin%22%2C%22name%22%3A%22A+B%22%7D"})
	rec := httptest.NewRecorder()

	st := NewCookieStorage(rec, req, CookieOptions{MaxAge: time.Hour})
	d := AdminGuard().Check(st)

	require.True(t, d.Authorized())
	assert.Equal(t, "A B", d.Session.User.Name)

	// writes are visible to later reads in the same request
	v, ok := st.Get(KeyUser)
	assert.True(t, ok)
	assert.Equal(t, userJSON, v)

	cookies := rec.Result().Cookies()
	names := map[string]*http.Cookie{}
	for _, c := range cookies {
		names[c.Name] = c
	}
	require.Contains(t, names, KeyAccessToken)
	require.Contains(t, names, KeyUser)
	assert.Equal(t, "t1", names[KeyAccessToken].Value)
	assert.True(t, names[KeyUser].HttpOnly)
	assert.Equal(t, 3600, names[KeyUser].MaxAge)
}

func TestCookieStorage_ClearExpiresCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: "t1"})
	req.AddCookie(&http.Cookie{Name: KeyUser, Value: "%7B%7D"})
	rec := httptest.NewRecorder()

	st := NewCookieStorage(rec, req, CookieOptions{})
	require.NoError(t, ClearSession(st))

	_, ok := st.Get(KeyAccessToken)
	assert.False(t, ok)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge, c.Name)
	}
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	st := NewFileStorage(path)

	_, ok := st.Get(KeyAccessToken)
	assert.False(t, ok)

	require.NoError(t, SetSession(st, &Session{Token: "file-token", User: User{Name: "F", Role: RoleInspector}}))

	reopened := NewFileStorage(path)
	s, err := GetSession(reopened)
	require.NoError(t, err)
	assert.Equal(t, "file-token", s.Token)
	assert.Equal(t, RoleInspector, s.User.Role)

	require.NoError(t, ClearSession(reopened))
	_, err = GetSession(st)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("unrelated-secret"))
	require.NoError(t, err)

	got, ok := TokenExpiry(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("admin_demo_token")
	assert.False(t, ok)
}
