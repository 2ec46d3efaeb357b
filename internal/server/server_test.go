package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradefresh-dev/gradefresh/internal/config"
	"github.com/gradefresh-dev/gradefresh/internal/session"
)

const (
	adminUserJSON    = `{"id":"admin_1","name":"Admin User","email":"admin@gradefresh.com","role":"admin"}`
	importerUserJSON = `{"id":"u2","name":"Imogen","email":"imogen@example.com","role":"importer"}`
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer starts a frontend whose API is served by routes
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *Server {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected API request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(api.Close)

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "0", CORSOrigins: []string{"http://localhost:3000"}},
		API:     config.APIConfig{URL: api.URL, Timeout: 5 * time.Second},
		Session: config.SessionConfig{MaxAge: time.Hour},
		Redis:   config.RedisConfig{NewsCacheTTL: time.Minute},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func storageCookie(name, value string) *http.Cookie {
	return &http.Cookie{Name: name, Value: url.QueryEscape(value)}
}

func do(srv *Server, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// responseCookies indexes Set-Cookie headers by name
func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func cookieValue(t *testing.T, c *http.Cookie) string {
	t.Helper()
	v, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	return v
}

func TestAdminGuard_EmptyStorageRedirectsToAdminLogin(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login?next=%2Fadmin%2Fdashboard", rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), "Dashboard")
}

func TestAdminGuard_NonAdminRedirectsHome(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/admin/users", nil),
		storageCookie(session.KeyAccessToken, "t2"),
		storageCookie(session.KeyUser, importerUserJSON),
	)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestAdminGuard_MalformedUserRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil),
		storageCookie(session.KeyAccessToken, "t1"),
		storageCookie(session.KeyUser, `{"role":"adm`),
	)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/admin/login"))
}

func TestAdminGuard_LegacyKeysAreMigrated(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/admin/stats": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]int{
				"total_users": 42, "exporters": 10, "importers": 12, "inspectors": 19, "admins": 1,
			})
		},
	})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil),
		storageCookie(session.KeyAdminToken, "t1"),
		storageCookie(session.KeyAdminUser, adminUserJSON),
	)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42")

	cookies := responseCookies(rec)
	require.Contains(t, cookies, session.KeyAccessToken)
	require.Contains(t, cookies, session.KeyUser)
	assert.Equal(t, "t1", cookieValue(t, cookies[session.KeyAccessToken]))
	assert.Equal(t, adminUserJSON, cookieValue(t, cookies[session.KeyUser]))
	assert.NotContains(t, cookies, session.KeyAdminToken)
}

func TestAdminPages_APIAuthFailureClearsSession(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/admin/users": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		},
	})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/admin/users", nil),
		storageCookie(session.KeyAccessToken, "expired"),
		storageCookie(session.KeyUser, adminUserJSON),
		storageCookie(session.KeyAdminToken, "expired"),
		storageCookie(session.KeyAdminUser, adminUserJSON),
	)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/admin/login"))

	cookies := responseCookies(rec)
	for _, key := range session.AllKeys {
		require.Contains(t, cookies, key)
		assert.Equal(t, -1, cookies[key].MaxAge, key)
	}
}

func TestQualityGuard_RedirectsToSignIn(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/quality", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin?next=%2Fquality", rec.Header().Get("Location"))
}

func TestNewsPage_APIErrorShowsRetryBanner(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/news": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/news", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `role="alert"`)
	assert.Contains(t, body, `href="/news">Try again`)
}

func TestNewsPage_ListsNewestFirst(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/news": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]any{
				{"_id": "1", "title": "Older", "content": "a", "author": "Admin", "is_published": true, "created_at": "2025-01-01T09:15:00.250000", "updated_at": "2025-01-01T09:15:00.250000"},
				{"_id": "2", "title": "Newer", "content": "b", "author": "Admin", "is_published": true, "created_at": "2025-06-01T10:00:00.123000", "updated_at": "2025-06-01T10:00:00.123000"},
			})
		},
	})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/news", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Less(t, strings.Index(body, "Newer"), strings.Index(body, "Older"))
	assert.Contains(t, body, "1 Jun 2025")
	assert.Contains(t, body, "1 Jan 2025")
}

func TestSignIn(t *testing.T) {
	login := func(role string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req["password"] != "secret1" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "u1", "name": "Ann", "phone": "1", "email": req["email"], "role": role,
				"username": "ann", "access_token": "fresh-token", "token_type": "bearer",
			})
		}
	}

	tests := []struct {
		name         string
		role         string
		form         url.Values
		wantStatus   int
		wantLocation string
	}{
		{
			name:         "exporter lands on quality checker",
			role:         "exporters",
			form:         url.Values{"email": {"ann@example.com"}, "password": {"secret1"}},
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/quality",
		},
		{
			name:         "admin lands on dashboard",
			role:         "admin",
			form:         url.Values{"email": {"ann@example.com"}, "password": {"secret1"}},
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/admin/dashboard",
		},
		{
			name:         "local next is honoured",
			role:         "importers",
			form:         url.Values{"email": {"ann@example.com"}, "password": {"secret1"}, "next": {"/quality?x=1"}},
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/quality?x=1",
		},
		{
			name:         "external next is ignored",
			role:         "importers",
			form:         url.Values{"email": {"ann@example.com"}, "password": {"secret1"}, "next": {"//evil.example"}},
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/quality",
		},
		{
			name:       "wrong password",
			role:       "importers",
			form:       url.Values{"email": {"ann@example.com"}, "password": {"nope"}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid email never reaches the api",
			role:       "importers",
			form:       url.Values{"email": {"ann"}, "password": {"secret1"}},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, map[string]http.HandlerFunc{"POST /api/login": login(tt.role)})

			rec := do(srv, postForm("/signin", tt.form))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantLocation == "" {
				assert.NotContains(t, responseCookies(rec), session.KeyAccessToken)
				return
			}
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))

			cookies := responseCookies(rec)
			require.Contains(t, cookies, session.KeyAccessToken)
			assert.Equal(t, "fresh-token", cookieValue(t, cookies[session.KeyAccessToken]))
			assert.True(t, cookies[session.KeyAccessToken].HttpOnly)

			var user session.User
			require.NoError(t, json.Unmarshal([]byte(cookieValue(t, cookies[session.KeyUser])), &user))
			assert.Equal(t, "Ann", user.Name)
		})
	}
}

func TestSignIn_InvalidCredentialsMessage(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/login": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		},
	})

	rec := do(srv, postForm("/signin", url.Values{"email": {"a@example.com"}, "password": {"x"}}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestAdminLogin_NonAdminAccount(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/admin/login": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Admin access required"})
		},
	})

	rec := do(srv, postForm("/admin/login", url.Values{"email": {"imogen@example.com"}, "password": {"pw"}}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not have admin privileges")
	assert.NotContains(t, responseCookies(rec), session.KeyAccessToken)
}

func TestRegister_SendsPluralRole(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/register": func(w http.ResponseWriter, r *http.Request) {
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "inspectors", req["role"])
			writeJSON(w, http.StatusCreated, map[string]any{
				"id": "u9", "name": req["name"], "phone": req["phone"], "email": req["email"],
				"role": req["role"], "username": req["username"], "access_token": "reg-token", "token_type": "bearer",
			})
		},
	})

	rec := do(srv, postForm("/register", url.Values{
		"name": {"Ivy"}, "phone": {"0771234567"}, "email": {"ivy@example.com"},
		"role": {"inspector"}, "username": {"ivy"}, "password": {"longenough"},
	}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/quality", rec.Header().Get("Location"))
	assert.Equal(t, "reg-token", cookieValue(t, responseCookies(rec)[session.KeyAccessToken]))
}

func TestRegister_RejectsAdminRole(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, postForm("/register", url.Values{
		"name": {"Eve"}, "phone": {"1"}, "email": {"eve@example.com"},
		"role": {"admin"}, "username": {"eve"}, "password": {"longenough"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Choose one of the listed options.")
}

func TestLogout_ClearsAllKeys(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := do(srv, req,
		storageCookie(session.KeyAccessToken, "t"),
		storageCookie(session.KeyUser, importerUserJSON),
		storageCookie(session.KeyAdminToken, "t"),
	)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookies := responseCookies(rec)
	assert.Equal(t, -1, cookies[session.KeyAccessToken].MaxAge)
	assert.Equal(t, -1, cookies[session.KeyUser].MaxAge)
	assert.Equal(t, -1, cookies[session.KeyAdminToken].MaxAge)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/quality", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeImage(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/predict": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer t2", r.Header.Get("Authorization"))
			_, header, err := r.FormFile("file")
			require.NoError(t, err)
			assert.Equal(t, "mango.png", header.Filename)
			assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

			writeJSON(w, http.StatusOK, map[string]any{
				"class_label": "ripe_mango", "confidence": 0.912, "quality_code": "B",
				"quality_status": "Ripe", "description": "Ready to eat within two days.", "export_suitable": false,
			})
		},
	})

	rec := do(srv, uploadRequest(t, "mango.png", pngBytes(t)),
		storageCookie(session.KeyAccessToken, "t2"),
		storageCookie(session.KeyUser, importerUserJSON),
	)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ripe mango")
	assert.Contains(t, body, "91.2%")
	assert.Contains(t, body, "Not suitable for export")
	assert.Contains(t, body, `action="/quality/report"`)
}

func TestAnalyzeImage_RejectsNonImage(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, uploadRequest(t, "notes.png", []byte("just some text, not a picture")),
		storageCookie(session.KeyAccessToken, "t2"),
		storageCookie(session.KeyUser, importerUserJSON),
	)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only PNG and JPEG images are supported.")
}

func TestAnalyzeImage_ExpiredTokenSignsOut(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/predict": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
		},
	})

	rec := do(srv, uploadRequest(t, "mango.png", pngBytes(t)),
		storageCookie(session.KeyAccessToken, "old"),
		storageCookie(session.KeyUser, importerUserJSON),
	)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
	assert.Equal(t, -1, responseCookies(rec)[session.KeyAccessToken].MaxAge)
}

func TestDownloadReport(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, postForm("/quality/report", url.Values{
		"file_name": {"mango.png"}, "class_label": {"ripe_mango"}, "confidence": {"0.912"},
		"quality_code": {"B"}, "quality_status": {"Ripe"}, "description": {"Ready to eat."},
		"export_suitable": {"false"},
	}),
		storageCookie(session.KeyAccessToken, "t2"),
		storageCookie(session.KeyUser, importerUserJSON),
	)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "gradefresh-report-")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestDeleteUser_CannotDeleteSelf(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/admin/users": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]string{{"id": "admin_1", "name": "Admin User", "role": "admin"}})
		},
	})

	rec := do(srv, httptest.NewRequest(http.MethodPost, "/admin/users/admin_1/delete", nil),
		storageCookie(session.KeyAccessToken, "t1"),
		storageCookie(session.KeyUser, adminUserJSON),
	)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "You cannot delete your own account.")
}

func TestDeleteUser(t *testing.T) {
	deleted := ""
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"DELETE /api/admin/users/u2": func(w http.ResponseWriter, r *http.Request) {
			deleted = "u2"
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
		},
	})

	rec := do(srv, httptest.NewRequest(http.MethodPost, "/admin/users/u2/delete", nil),
		storageCookie(session.KeyAccessToken, "t1"),
		storageCookie(session.KeyUser, adminUserJSON),
	)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/users?flash=user_deleted", rec.Header().Get("Location"))
	assert.Equal(t, "u2", deleted)
}

func TestCreateNews(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/admin/news": func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Harvest update", req["title"])
			assert.Equal(t, false, req["is_published"])
			writeJSON(w, http.StatusCreated, map[string]any{"_id": "n1", "title": req["title"]})
		},
	})

	cookies := []*http.Cookie{
		storageCookie(session.KeyAccessToken, "t1"),
		storageCookie(session.KeyUser, adminUserJSON),
	}

	rec := do(srv, postForm("/admin/news/create", url.Values{"title": {"Harvest update"}, "content": {"Mangoes are in."}}), cookies...)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/news?flash=news_created", rec.Header().Get("Location"))

	rec = do(srv, postForm("/admin/news/create", url.Values{"content": {"No title"}}), cookies...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")
}

func TestFAQSearch(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/faq?q=trial", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Is there a free trial available?")
	assert.NotContains(t, body, "What hardware requirements are needed?")
}

func TestContactForm(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, postForm("/contact", url.Values{"name": {"Ann"}, "email": {"bad"}, "subject": {"Hi"}, "message": {"Hello"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid email address.")

	rec = do(srv, postForm("/contact", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "subject": {"Hi"}, "message": {"Hello"}}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thank you for reaching out.")
}

func TestSessionState(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name      string
		query     string
		cookies   []*http.Cookie
		wantState string
		wantRedir string
	}{
		{name: "anonymous", query: "", wantState: "redirecting", wantRedir: "/signin"},
		{
			name:      "importer asking for admin",
			query:     "?role=admin",
			cookies:   []*http.Cookie{storageCookie(session.KeyAccessToken, "t"), storageCookie(session.KeyUser, importerUserJSON)},
			wantState: "redirecting",
			wantRedir: "/",
		},
		{
			name:      "legacy admin",
			query:     "?role=admin",
			cookies:   []*http.Cookie{storageCookie(session.KeyAdminToken, "t"), storageCookie(session.KeyAdminUser, adminUserJSON)},
			wantState: "authorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/session"+tt.query, nil), tt.cookies...)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp struct {
				State    string        `json:"state"`
				Redirect string        `json:"redirect"`
				User     *session.User `json:"user"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantState, resp.State)
			assert.Equal(t, tt.wantRedir, resp.Redirect)
			if tt.wantState == "authorized" {
				require.NotNil(t, resp.User)
				assert.Equal(t, "Admin User", resp.User.Name)
			} else {
				assert.Nil(t, resp.User)
			}
		})
	}

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/session?role=farmer", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicPagesRender(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/", "/about", "/faq", "/contact", "/register", "/signin", "/admin/login"} {
		rec := do(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "GradeFresh", path)
	}

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache":"disabled"`)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	do(srv, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `gradefresh_guard_decisions_total{guard="admin",state="redirecting"} 1`)
}

func TestAdminPages_AuthFailureAfterMigrationClearsPrimaryKeys(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/admin/stats": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Admin access required"})
		},
	})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil),
		storageCookie(session.KeyAdminToken, "t1"),
		storageCookie(session.KeyAdminUser, adminUserJSON),
	)

	assert.Equal(t, http.StatusSeeOther, rec.Code)

	// The last Set-Cookie for each key wins in the browser
	cookies := responseCookies(rec)
	for _, key := range session.AllKeys {
		require.Contains(t, cookies, key)
		assert.Equal(t, -1, cookies[key].MaxAge, key)
	}
}
