package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"

	"dailyscrum/internal/app"
	"dailyscrum/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp builds the full app over in-memory SQLite, the in-process cache and
// a temporary upload directory.
func setupApp(t *testing.T, overrides map[string]any) *app.App {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("DATABASE_DSN", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	v.Set("STORAGE_PATH", t.TempDir())
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

type response struct {
	status int
	body   map[string]any
	raw    []byte
}

func do(t *testing.T, a *app.App, req *http.Request, token string) response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.Fiber.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{status: resp.StatusCode, raw: raw}
	if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func doJSON(t *testing.T, a *app.App, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return do(t, a, req, token)
}

type part struct {
	name        string
	contentType string
	data        []byte
}

func doMultipart(t *testing.T, a *app.App, method, path, token string, fields map[string]string, files []part) response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, val := range fields {
		require.NoError(t, w.WriteField(k, val))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return do(t, a, req, token)
}

func registerAndLogin(t *testing.T, a *app.App, username, email, password string) string {
	t.Helper()
	resp := doJSON(t, a, http.MethodPost, "/user/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.raw))

	resp = doJSON(t, a, http.MethodPost, "/user/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	token, _ := resp.body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func object(t *testing.T, body map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := body[key].(map[string]any)
	require.True(t, ok, "missing object %q in %v", key, body)
	return v
}

func array(t *testing.T, body map[string]any, key string) []any {
	t.Helper()
	v, ok := body[key].([]any)
	require.True(t, ok, "missing array %q in %v", key, body)
	return v
}

func TestAuthRegisterAndLogin(t *testing.T) {
	a := setupApp(t, nil)

	userToRegister := map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	}
	resp := doJSON(t, a, http.MethodPost, "/user/register", "", userToRegister)
	assert.Equal(t, http.StatusCreated, resp.status)
	assert.Equal(t, "User registered successfully", resp.body["message"])
	user := object(t, resp.body, "user")
	assert.NotContains(t, user, "password")

	// Test Duplicate Registration (username)
	resp = doJSON(t, a, http.MethodPost, "/user/register", "", userToRegister)
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Contains(t, resp.body, "error")

	// Test invalid email
	resp = doJSON(t, a, http.MethodPost, "/user/register", "", map[string]string{
		"username": "other", "email": "not-an-email", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	// Test Login
	resp = doJSON(t, a, http.MethodPost, "/user/login", "", map[string]string{
		"username": "testuser", "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.status)
	token, _ := resp.body["token"].(string)
	require.NotEmpty(t, token)

	claims, err := a.Auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, user["id"], claims.ID)

	resp = doJSON(t, a, http.MethodPost, "/user/login", "", map[string]string{
		"username": "testuser", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = doJSON(t, a, http.MethodGet, "/user/info", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "testuser", object(t, resp.body, "info")["username"])

	resp = doJSON(t, a, http.MethodPost, "/user/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.status)
}

func TestDailyScrumEndToEnd(t *testing.T) {
	a := setupApp(t, nil)
	token := registerAndLogin(t, a, "alice", "a@x.com", "pw123")

	resp := doJSON(t, a, http.MethodPost, "/daily-scrum", token, map[string]string{
		"title": "Standup",
		"daily": "did X",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.raw))
	assert.EqualValues(t, 201, resp.body["status"])
	created := object(t, resp.body, "dailyScrum")
	assert.Equal(t, "alice", created["writer"])
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	resp = doJSON(t, a, http.MethodGet, "/daily-scrum/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	fetched := object(t, resp.body, "dailyScrum")
	for _, field := range []string{"title", "daily", "problem", "todo", "writer", "user_id"} {
		assert.Equal(t, created[field], fetched[field], field)
	}
	assert.Equal(t, []any{}, fetched["files"])
	assert.Equal(t, []any{}, fetched["reviews"])

	resp = doJSON(t, a, http.MethodGet, "/daily-scrum", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, array(t, resp.body, "dailyScrumPosts"), 1)

	resp = doJSON(t, a, http.MethodGet, "/daily-scrum?title=nothing-like-this", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, array(t, resp.body, "dailyScrumPosts"))

	resp = doJSON(t, a, http.MethodGet, "/daily-scrum/user", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, array(t, resp.body, "dailyScrumPosts"), 1)

	resp = doJSON(t, a, http.MethodDelete, "/daily-scrum/"+id, token, nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = doJSON(t, a, http.MethodGet, "/daily-scrum/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestDailyScrumUploadsAndFiles(t *testing.T) {
	a := setupApp(t, nil)
	token := registerAndLogin(t, a, "alice", "a@x.com", "pw123")

	resp := doMultipart(t, a, http.MethodPost, "/daily-scrum", token,
		map[string]string{"title": "With files", "todo": "keep me"},
		[]part{{name: "notes.txt", contentType: "text/plain", data: []byte("first")}})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.raw))
	post := object(t, resp.body, "dailyScrum")
	id := post["id"].(string)
	files := post["files"].([]any)
	require.Len(t, files, 1)
	first := files[0].(map[string]any)
	firstName := first["name"].(string)
	assert.Equal(t, "http://localhost:8080/api/files/"+firstName, first["url"])

	resp = do(t, a, httptest.NewRequest(http.MethodGet, "/api/files/"+firstName, nil), "")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "first", string(resp.raw))

	// Uploads on update append, absent fields stay as they were.
	resp = doMultipart(t, a, http.MethodPatch, "/daily-scrum/"+id, token,
		map[string]string{"title": "Renamed"},
		[]part{{name: "data.csv", contentType: "text/csv", data: []byte("a,b")}})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	post = object(t, resp.body, "dailyScrum")
	assert.Equal(t, "Renamed", post["title"])
	assert.Equal(t, "keep me", post["todo"])
	files = post["files"].([]any)
	require.Len(t, files, 2)
	assert.Equal(t, firstName, files[0].(map[string]any)["name"])

	resp = doJSON(t, a, http.MethodDelete, "/daily-scrum/"+id+"/file?file="+firstName, token, nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	assert.Len(t, object(t, resp.body, "dailyScrum")["files"], 1)

	resp = do(t, a, httptest.NewRequest(http.MethodGet, "/api/files/"+firstName, nil), "")
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = doJSON(t, a, http.MethodDelete, "/daily-scrum/"+id+"/file", token, map[string]string{"file": "unknown.txt"})
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = doJSON(t, a, http.MethodGet, "/api/files", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, array(t, resp.body, "files"), 1)

	resp = doJSON(t, a, http.MethodGet, "/api/files", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestDailyScrumUploadLocatorsAreFetchable(t *testing.T) {
	a := setupApp(t, nil)
	token := registerAndLogin(t, a, "alice", "a@x.com", "pw123")

	names := []string{"notes.t#xt", "notes.t?x", "notes.a b", "notes.p%zz"}
	parts := make([]part, 0, len(names))
	for _, name := range names {
		parts = append(parts, part{name: name, contentType: "text/plain", data: []byte("body of " + name)})
	}
	resp := doMultipart(t, a, http.MethodPost, "/daily-scrum", token, map[string]string{"title": "Odd names"}, parts)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.raw))
	files := object(t, resp.body, "dailyScrum")["files"].([]any)
	require.Len(t, files, len(names))

	for i, f := range files {
		locator, err := url.Parse(f.(map[string]any)["url"].(string))
		require.NoError(t, err)
		got := do(t, a, httptest.NewRequest(http.MethodGet, locator.RequestURI(), nil), "")
		require.Equal(t, http.StatusOK, got.status, locator.String())
		assert.Equal(t, "body of "+names[i], string(got.raw))
	}

	resp = do(t, a, httptest.NewRequest(http.MethodGet, "/api/files/bad%zzname", nil), "")
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestDailyScrumUploadLimit(t *testing.T) {
	a := setupApp(t, map[string]any{"MAX_UPLOAD_FILES": 1})
	token := registerAndLogin(t, a, "alice", "a@x.com", "pw123")

	resp := doMultipart(t, a, http.MethodPost, "/daily-scrum", token,
		map[string]string{"title": "Too many"},
		[]part{
			{name: "a.txt", contentType: "text/plain", data: []byte("a")},
			{name: "b.txt", contentType: "text/plain", data: []byte("b")},
		})
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestDailyScrumPartialUpdateJSON(t *testing.T) {
	a := setupApp(t, nil)
	token := registerAndLogin(t, a, "alice", "a@x.com", "pw123")

	resp := doJSON(t, a, http.MethodPost, "/daily-scrum", token, map[string]string{
		"title": "t", "daily": "d", "problem": "p", "todo": "x",
		"createdAt": "2024-05-01T08:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.raw))
	post := object(t, resp.body, "dailyScrum")
	assert.Equal(t, "2024-05-01T08:00:00Z", post["created_at"])
	id := post["id"].(string)

	resp = doJSON(t, a, http.MethodPatch, "/daily-scrum/"+id, token, map[string]any{
		"problem": nil,
		"todo":    "y",
	})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	post = object(t, resp.body, "dailyScrum")
	assert.Equal(t, "t", post["title"])
	assert.Equal(t, "d", post["daily"])
	assert.Equal(t, "", post["problem"])
	assert.Equal(t, "y", post["todo"])

	resp = doJSON(t, a, http.MethodPatch, "/daily-scrum/"+id, token, map[string]any{"createdAt": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = doJSON(t, a, http.MethodPost, "/daily-scrum", token, map[string]string{"daily": "no title"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestReviewLifecycle(t *testing.T) {
	a := setupApp(t, nil)
	alice := registerAndLogin(t, a, "alice", "a@x.com", "pw123")
	bob := registerAndLogin(t, a, "bob", "b@x.com", "pw456")

	resp := doJSON(t, a, http.MethodPost, "/daily-scrum", alice, map[string]string{"title": "Review me"})
	require.Equal(t, http.StatusCreated, resp.status)
	id := object(t, resp.body, "dailyScrum")["id"].(string)
	reviewsPath := "/daily-scrum/" + id + "/review"

	resp = doJSON(t, a, http.MethodPost, reviewsPath, bob, map[string]any{"review_text": "nice", "score": 7})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.raw))
	review := object(t, resp.body, "review")
	assert.Equal(t, "bob", review["reviewer"])
	assert.Equal(t, "7", review["score"])
	reviewID := review["id"].(string)

	resp = doJSON(t, a, http.MethodPost, reviewsPath, bob, map[string]any{"score": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = doJSON(t, a, http.MethodGet, reviewsPath, "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, array(t, resp.body, "reviews"), 1)

	resp = doJSON(t, a, http.MethodPatch, reviewsPath+"/"+reviewID, alice, map[string]any{"score": "0"})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = doJSON(t, a, http.MethodPatch, reviewsPath+"/"+reviewID, bob, map[string]any{"score": "9"})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	review = object(t, resp.body, "review")
	assert.Equal(t, "9", review["score"])
	assert.Equal(t, "nice", review["review_text"])

	resp = doJSON(t, a, http.MethodGet, reviewsPath+"/"+reviewID, "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "9", object(t, resp.body, "review")["score"])

	// The post owner may remove reviews left on their post.
	resp = doJSON(t, a, http.MethodDelete, reviewsPath+"/"+reviewID, alice, nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = doJSON(t, a, http.MethodGet, reviewsPath+"/"+reviewID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = doJSON(t, a, http.MethodGet, "/daily-scrum/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, []any{}, object(t, resp.body, "dailyScrum")["reviews"])
}

func TestOwnershipIsEnforced(t *testing.T) {
	a := setupApp(t, nil)
	alice := registerAndLogin(t, a, "alice", "a@x.com", "pw123")
	bob := registerAndLogin(t, a, "bob", "b@x.com", "pw456")

	resp := doJSON(t, a, http.MethodPost, "/daily-scrum", alice, map[string]string{"title": "Mine"})
	require.Equal(t, http.StatusCreated, resp.status)
	id := object(t, resp.body, "dailyScrum")["id"].(string)

	resp = doJSON(t, a, http.MethodPatch, "/daily-scrum/"+id, bob, map[string]string{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Contains(t, resp.body, "error")

	resp = doJSON(t, a, http.MethodDelete, "/daily-scrum/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = doJSON(t, a, http.MethodGet, "/daily-scrum/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "Mine", object(t, resp.body, "dailyScrum")["title"])

	resp = doJSON(t, a, http.MethodPatch, "/daily-scrum/missing", alice, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestTitleEndpoints(t *testing.T) {
	a := setupApp(t, nil)
	alice := registerAndLogin(t, a, "alice", "a@x.com", "pw123")
	bob := registerAndLogin(t, a, "bob", "b@x.com", "pw456")

	resp := doJSON(t, a, http.MethodGet, "/user/info", bob, nil)
	require.Equal(t, http.StatusOK, resp.status)
	bobID := object(t, resp.body, "info")["id"].(string)

	resp = doJSON(t, a, http.MethodPost, "/title", alice, map[string]any{"title": "Project X", "member": []string{bobID}})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.raw))
	title := object(t, resp.body, "title")
	titleID := title["id"].(string)
	members := title["member"].([]any)
	require.Len(t, members, 1)
	assert.Equal(t, "bob", members[0].(map[string]any)["username"])

	resp = doJSON(t, a, http.MethodPost, "/title", alice, map[string]any{"member": []string{bobID}})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = doJSON(t, a, http.MethodGet, "/title/user", bob, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, array(t, resp.body, "titles"), 1)

	resp = doJSON(t, a, http.MethodPut, "/title/"+titleID, bob, map[string]any{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = doJSON(t, a, http.MethodPut, "/title/"+titleID, alice, map[string]any{"member": []string{}})
	require.Equal(t, http.StatusOK, resp.status, string(resp.raw))
	title = object(t, resp.body, "title")
	assert.Equal(t, "Project X", title["title"])
	assert.Empty(t, title["member"])

	resp = doJSON(t, a, http.MethodGet, "/title/user", bob, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, array(t, resp.body, "titles"))

	resp = doJSON(t, a, http.MethodGet, "/title?title=proj", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, array(t, resp.body, "titles"), 1)

	resp = doJSON(t, a, http.MethodDelete, "/title/"+titleID, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = doJSON(t, a, http.MethodDelete, "/title/"+titleID, alice, nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = doJSON(t, a, http.MethodGet, "/title/"+titleID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestEndpointsWithoutAuth(t *testing.T) {
	a := setupApp(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/daily-scrum"},
		{http.MethodPatch, "/daily-scrum/some-id"},
		{http.MethodDelete, "/daily-scrum/some-id"},
		{http.MethodDelete, "/daily-scrum/some-id/file"},
		{http.MethodPost, "/daily-scrum/some-id/review"},
		{http.MethodGet, "/daily-scrum/user"},
		{http.MethodPost, "/title"},
		{http.MethodPut, "/title/some-id"},
		{http.MethodGet, "/title/user"},
		{http.MethodGet, "/user/info"},
		{http.MethodPost, "/user/logout"},
	} {
		resp := doJSON(t, a, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.status, "%s %s", tc.method, tc.path)
	}

	resp := doJSON(t, a, http.MethodGet, "/user/info", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	req := httptest.NewRequest(http.MethodGet, "/user/info", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, do(t, a, req, "").status)

	// Public reads stay open.
	resp = doJSON(t, a, http.MethodGet, "/daily-scrum", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)
	resp = doJSON(t, a, http.MethodGet, "/title", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)
}
