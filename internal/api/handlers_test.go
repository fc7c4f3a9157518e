package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/api"
	"github.com/jonesrussell/north-cloud/catalog/internal/blobstore"
	"github.com/jonesrussell/north-cloud/catalog/internal/database"
	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/graph"
	"github.com/jonesrussell/north-cloud/catalog/internal/telemetry"
)

const storageDir = "/storage"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	repo   *database.CatalogRepository
	blobs  *blobstore.Store
	fs     afero.Fs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := database.Config{Driver: database.DriverSQLite, DSN: filepath.Join(t.TempDir(), "catalog.db")}
	require.NoError(t, database.MigrateUp(cfg, logger.NewNop()))
	db, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fs := afero.NewMemMapFs()
	blobs, err := blobstore.NewWithFs(fs, storageDir)
	require.NoError(t, err)

	repo := database.NewCatalogRepository(db)
	env := &testEnv{repo: repo, blobs: blobs, fs: fs}
	env.router = newRouter(repo, blobs, graph.NewBuilder(database.NewTagStatsRepository(db)))
	return env
}

func newRouter(catalog api.CatalogStore, blobs api.BlobStore, g api.GraphBuilder) *gin.Engine {
	router := gin.New()
	api.SetupServiceRoutes(router, api.NewHandler(catalog, blobs, g, logger.NewNop()), nil)
	return router
}

// seed stores a blob and records an entry pointing at it.
func (e *testEnv) seed(t *testing.T, obj *domain.NewDataObject, content string) string {
	t.Helper()

	lease, err := e.blobs.Write(context.Background(), []byte(content), obj.Name, "")
	require.NoError(t, err)
	lease.Commit()
	obj.ContentLocation = lease.Path()
	if obj.Type == "" {
		obj.Type = "text/plain"
	}

	id, err := e.repo.Insert(context.Background(), obj)
	require.NoError(t, err)
	return id
}

func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()

	entries, err := afero.ReadDir(e.fs, storageDir)
	require.NoError(t, err)
	return len(entries)
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateObject(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, http.MethodPost, "/api/v1/objects", map[string]string{
		"name":          "notes.txt",
		"type":          "text/plain",
		"status":        "new",
		"source":        "manual_upload",
		"tags":          " Finance, report ,,finance",
		"quality_score": "1.7",
	}, "notes.txt", "quarterly notes")
	rec := do(env.router, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeObject(t, rec)
	assert.Equal(t, "notes.txt", body["name"])
	assert.Equal(t, "manual_upload", body["source"])
	assert.InDelta(t, 1.0, body["quality_score"], 1e-9)
	assert.Equal(t, []any{"finance", "report"}, body["tags"])
	assert.NotContains(t, body, "content_location")
	assert.Equal(t, 1, env.blobCount(t))
}

func TestCreateObject_Validation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		file   string
	}{
		{"missing name", map[string]string{"type": "text/plain", "status": "new"}, "a.txt"},
		{"missing status", map[string]string{"name": "a", "type": "text/plain"}, "a.txt"},
		{"unknown status", map[string]string{"name": "a", "type": "text/plain", "status": "done"}, "a.txt"},
		{"bad score", map[string]string{"name": "a", "type": "text/plain", "status": "new", "quality_score": "high"}, "a.txt"},
		{"missing file", map[string]string{"name": "a", "type": "text/plain", "status": "new"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := do(env.router, multipartRequest(t, http.MethodPost, "/api/v1/objects", tt.fields, tt.file, "x"))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, env.blobCount(t))
		})
	}
}

type failingInsert struct {
	api.CatalogStore
}

func (failingInsert) Insert(context.Context, *domain.NewDataObject) (string, error) {
	return "", errors.New("disk full")
}

func TestCreateObject_InsertFailureRemovesBlob(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(failingInsert{env.repo}, env.blobs, nil)

	rec := do(router, multipartRequest(t, http.MethodPost, "/api/v1/objects",
		map[string]string{"name": "a", "type": "text/plain", "status": "new"}, "a.txt", "x"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")
	assert.Equal(t, 0, env.blobCount(t))
}

func TestGetObject(t *testing.T) {
	env := newTestEnv(t)
	id := env.seed(t, &domain.NewDataObject{Name: "a.txt"}, "hello")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/api/v1/objects/" + id, http.StatusOK},
		{"malformed id", "/api/v1/objects/not-a-uuid", http.StatusBadRequest},
		{"unknown id", "/api/v1/objects/0190d3f0-0000-7000-8000-000000000000", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env.router, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetObjectContent(t *testing.T) {
	env := newTestEnv(t)
	id := env.seed(t, &domain.NewDataObject{Name: "items.json", Type: domain.TypeJSONItem}, `{"a":1}`)

	rec := do(env.router, httptest.NewRequest(http.MethodGet, "/api/v1/objects/"+id+"/content", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"a":1}`, rec.Body.String())
	assert.Equal(t, domain.TypeJSON, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "items.json")
}

func TestGetObjectContent_MissingBlob(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.repo.Insert(context.Background(), &domain.NewDataObject{
		Name: "gone.txt", Type: "text/plain", ContentLocation: storageDir + "/gone.txt",
	})
	require.NoError(t, err)

	rec := do(env.router, httptest.NewRequest(http.MethodGet, "/api/v1/objects/"+id+"/content", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListObjects(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, &domain.NewDataObject{Name: "q1.txt", Source: domain.StringPtr("finance"), Tags: []string{"finance", "quarterly"}}, "a")
	env.seed(t, &domain.NewDataObject{Name: "q2.txt", Source: domain.StringPtr("finance"), Tags: []string{"finance"}}, "b")
	env.seed(t, &domain.NewDataObject{Name: "memo.txt", Source: domain.StringPtr("hr")}, "c")

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantTotal int
		wantCount int
		wantLimit int
	}{
		{"all", "", http.StatusOK, 3, 3, domain.DefaultPageLimit},
		{"by source", "?source=finance", http.StatusOK, 2, 2, domain.DefaultPageLimit},
		{"all tag patterns must match", "?tags=fin,quarter", http.StatusOK, 1, 1, domain.DefaultPageLimit},
		{"name substring", "?name_like=memo", http.StatusOK, 1, 1, domain.DefaultPageLimit},
		{"paged", "?limit=2&offset=2", http.StatusOK, 3, 1, 2},
		{"limit capped", "?limit=500", http.StatusOK, 3, 3, domain.MaxPageLimit},
		{"negative limit takes default", "?limit=-1", http.StatusOK, 3, 3, domain.DefaultPageLimit},
		{"negative offset clamps", "?offset=-4&limit=2", http.StatusOK, 3, 2, 2},
		{"non-numeric offset", "?offset=abc", http.StatusBadRequest, 0, 0, 0},
		{"unknown status", "?status=done", http.StatusBadRequest, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env.router, httptest.NewRequest(http.MethodGet, "/api/v1/objects"+tt.query, nil))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp api.ListObjectsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantTotal, resp.TotalRecords)
			assert.Equal(t, tt.wantCount, resp.CountInResponse)
			assert.Len(t, resp.Data, tt.wantCount)
			assert.Equal(t, tt.wantLimit, resp.LimitUsed)
		})
	}
}

func TestUpdateObject_Partial(t *testing.T) {
	env := newTestEnv(t)
	id := env.seed(t, &domain.NewDataObject{Name: "a.txt", Tags: []string{"old"}}, "v1")

	rec := do(env.router, multipartRequest(t, http.MethodPut, "/api/v1/objects/"+id,
		map[string]string{"tags": "New,Fresh", "status": "classified"}, "", ""))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeObject(t, rec)
	assert.Equal(t, "a.txt", body["name"])
	assert.Equal(t, "classified", body["status"])
	assert.Equal(t, []any{"fresh", "new"}, body["tags"])
}

func TestUpdateObject_ReplacesBlob(t *testing.T) {
	env := newTestEnv(t)
	id := env.seed(t, &domain.NewDataObject{Name: "a.txt"}, "v1")
	before, err := env.repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	rec := do(env.router, multipartRequest(t, http.MethodPut, "/api/v1/objects/"+id, nil, "a.txt", "v2"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	after, err := env.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, before.ContentLocation, after.ContentLocation)
	assert.False(t, env.blobs.Exists(before.ContentLocation))

	data, err := env.blobs.ReadAll(after.ContentLocation)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, 1, env.blobCount(t))
}

func TestUpdateObject_Errors(t *testing.T) {
	env := newTestEnv(t)
	id := env.seed(t, &domain.NewDataObject{Name: "a.txt"}, "v1")

	tests := []struct {
		name   string
		id     string
		fields map[string]string
		want   int
	}{
		{"nothing to update", id, nil, http.StatusBadRequest},
		{"bad score", id, map[string]string{"quality_score": "NaN"}, http.StatusBadRequest},
		{"bad status", id, map[string]string{"status": "done"}, http.StatusBadRequest},
		{"unknown id", "0190d3f0-0000-7000-8000-000000000000", map[string]string{"name": "b"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(env.router, multipartRequest(t, http.MethodPut, "/api/v1/objects/"+tt.id, tt.fields, "", ""))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDeleteObject_ContainerPurgesItems(t *testing.T) {
	env := newTestEnv(t)
	containerID := env.seed(t, &domain.NewDataObject{Name: "list.json", Type: domain.TypeJSONContainer}, `[1,2]`)
	for _, key := range []string{"0", "1"} {
		env.seed(t, &domain.NewDataObject{
			Name:             "list_item_" + key + ".json",
			Type:             domain.TypeJSONItem,
			SourceOriginalID: domain.StringPtr(containerID),
			SourceItemKey:    domain.StringPtr(key),
		}, "item "+key)
	}
	require.Equal(t, 3, env.blobCount(t))

	rec := do(env.router, httptest.NewRequest(http.MethodDelete, "/api/v1/objects/"+containerID, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.DeleteObjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ChildrenPurged)
	assert.Equal(t, 0, env.blobCount(t))

	total, err := env.repo.Count(context.Background(), domain.Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	rec = do(env.router, httptest.NewRequest(http.MethodDelete, "/api/v1/objects/"+containerID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetObject(t *testing.T) {
	env := newTestEnv(t)
	errored := env.seed(t, &domain.NewDataObject{Name: "bad.txt", Status: domain.StatusError}, "x")
	fresh := env.seed(t, &domain.NewDataObject{Name: "new.txt"}, "y")

	rec := do(env.router, httptest.NewRequest(http.MethodPost, "/api/v1/objects/"+errored+"/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "new", decodeObject(t, rec)["status"])

	rec = do(env.router, httptest.NewRequest(http.MethodPost, "/api/v1/objects/"+fresh+"/reset", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetTagGraph(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, &domain.NewDataObject{Name: "a", Tags: []string{"finance", "report"}}, "a")
	env.seed(t, &domain.NewDataObject{Name: "b", Tags: []string{"finance", "report"}}, "b")
	env.seed(t, &domain.NewDataObject{Name: "c", Tags: []string{"finance"}}, "c")

	rec := do(env.router, httptest.NewRequest(http.MethodGet, "/api/v1/tags/graph?min_freq=2&min_strength=2", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var g domain.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Links, 1)
	assert.Equal(t, 2, g.Links[0].Value)

	rec = do(env.router, httptest.NewRequest(http.MethodGet, "/api/v1/tags/graph?min_freq=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	tel := telemetry.NewProviderWithRegistry(prometheus.NewRegistry())
	tel.SetQueueDepth(7)

	router := gin.New()
	api.SetupServiceRoutes(router, api.NewHandler(nil, nil, nil, nil), tel.Handler(), tel.HTTP.Middleware())

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/objects/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_queue_depth 7")
	assert.Contains(t, rec.Body.String(),
		`catalog_http_requests_total{code="400",method="GET",route="/api/v1/objects/:id"} 1`)
}
