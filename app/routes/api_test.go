package routes_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appgraphql "github.com/sesamoshop/tienda/app/graphql"
	"github.com/sesamoshop/tienda/app/routes"
	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/internal/ratelimit"
	"github.com/sesamoshop/tienda/internal/session"
	"github.com/sesamoshop/tienda/internal/store"
	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/router"
	"github.com/sesamoshop/tienda/pkg/storage"
	"github.com/sesamoshop/tienda/pkg/ws"
)

const uploadsDir = "uploads/products"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	disk := storage.NewLocalDisk(root, "http://localhost:3000")
	st := store.Open(filepath.Join(root, "database.json"))
	t.Cleanup(st.Close)

	sessions := session.NewRegistry(24 * time.Hour)
	limiter := ratelimit.New(20, 15*time.Minute)
	saver := uploads.NewSaver(disk, uploadsDir)
	collector := uploads.NewCollector(disk, uploadsDir, st)
	catalog := services.NewCatalogService(st, saver, disk, uploadsDir)
	auth := services.NewAuthService(st, sessions, limiter)

	gql, err := appgraphql.New(catalog)
	require.NoError(t, err)

	feed := ws.NewHub()
	go feed.Run()

	r := router.New()
	routes.RegisterAPI(r, routes.Deps{
		Auth:       auth,
		Catalog:    catalog,
		Sessions:   sessions,
		Collector:  collector,
		Disk:       disk,
		UploadsDir: uploadsDir,
		Feed:       feed,
		GraphQL:    gql,
	})

	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/admin/login",
		map[string]string{"username": "admin", "password": "admin123"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	data := body["data"].(map[string]any)
	token := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginAndVerify(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := getJSON(t, srv.URL+"/api/admin/verify", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["valid"])
}

func TestLoginBadCredentials(t *testing.T) {
	srv := newServer(t)
	resp := postJSON(t, srv.URL+"/api/admin/login",
		map[string]string{"username": "admin", "password": "wrong"}, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv := newServer(t)

	resp := getJSON(t, srv.URL+"/api/admin/stats", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/admin/stats", "not-a-real-token")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := postJSON(t, srv.URL+"/api/admin/logout", map[string]string{}, token)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/admin/verify", token)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCategoryLifecycleOverHTTP(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := postJSON(t, srv.URL+"/api/admin/categories",
		map[string]string{"name": "Camisetas", "description": "de algodón"}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(1), created["id"])

	// Duplicate, case-insensitive.
	resp = postJSON(t, srv.URL+"/api/admin/categories",
		map[string]string{"name": "camisetas"}, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Public listing needs no token.
	resp = getJSON(t, srv.URL+"/api/categories", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode(t, resp)["data"].([]any)
	assert.Len(t, list, 1)
}

func TestCategoryValidation(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := postJSON(t, srv.URL+"/api/admin/categories", map[string]string{"name": ""}, token)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestProductLifecycleOverHTTP(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := postJSON(t, srv.URL+"/api/admin/products", map[string]any{
		"name": "Camiseta blanca", "category": "Camisetas",
		"price": 19.9, "stock": 5, "status": "active",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode(t, resp)["data"].(map[string]any)
	id := created["id"].(float64)
	assert.Equal(t, float64(1), id)

	// Storefront list shows it.
	resp = getJSON(t, srv.URL+"/api/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	items := data["items"].([]any)
	assert.Len(t, items, 1)

	// Delete it.
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/admin/products/1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/products/1", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductMultipartRejectsBadNumbers(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Camisa"))
	require.NoError(t, mw.WriteField("category", "Camisas"))
	require.NoError(t, mw.WriteField("price", "abc"))
	require.NoError(t, mw.WriteField("stock", "xyz"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/products", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode(t, resp)
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "price")
	assert.Contains(t, errs, "stock")

	// Nothing was created.
	resp = getJSON(t, srv.URL+"/api/admin/products", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	assert.Empty(t, data["items"])
}

func TestCheckOrphanedImages(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := getJSON(t, srv.URL+"/api/admin/check-orphaned-images", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(0), data["totalFiles"])
	assert.Equal(t, float64(0), data["orphanedCount"])
}

func TestGraphQLProducts(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp := postJSON(t, srv.URL+"/api/admin/products", map[string]any{
		"name": "Vinilo", "category": "Vinilos", "price": 25.0, "stock": 3, "status": "active",
	}, token)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/graphql", map[string]any{
		"query": `{ products { id name price } }`,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	result := body["data"].(map[string]any)
	inner := result["data"].(map[string]any)
	products := inner["products"].([]any)
	require.Len(t, products, 1)
	first := products[0].(map[string]any)
	assert.Equal(t, "Vinilo", first["name"])
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	resp := getJSON(t, srv.URL+"/health", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
