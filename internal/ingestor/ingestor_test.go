package ingestor_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/catalog/internal/blobstore"
	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/ingestor"
)

const (
	inputDir = "/input"
	blobDir  = "/blobs"
)

var errInsert = errors.New("insert failed")

type memCatalog struct {
	mu      sync.Mutex
	objects []*domain.NewDataObject
	ids     []string
	failFor func(*domain.NewDataObject) bool
}

func (m *memCatalog) Insert(_ context.Context, obj *domain.NewDataObject) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor != nil && m.failFor(obj) {
		return "", errInsert
	}
	id := fmt.Sprintf("id-%d", len(m.objects)+1)
	m.objects = append(m.objects, obj)
	m.ids = append(m.ids, id)
	return id, nil
}

func (m *memCatalog) byName(name string) (*domain.NewDataObject, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.objects {
		if o.Name == name {
			return o, m.ids[i]
		}
	}
	return nil, ""
}

func (m *memCatalog) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type fixture struct {
	fs      afero.Fs
	catalog *memCatalog
	ing     *ingestor.Ingestor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := blobstore.NewWithFs(fs, blobDir)
	require.NoError(t, err)

	catalog := &memCatalog{}
	ing := ingestor.NewIngestor(nil, fs, store, catalog, ingestor.Config{InputDir: inputDir}, nil)
	return &fixture{fs: fs, catalog: catalog, ing: ing}
}

func (f *fixture) drop(t *testing.T, source, name, body string) string {
	t.Helper()
	path := filepath.Join(inputDir, source, name)
	require.NoError(t, f.fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(f.fs, path, []byte(body), 0o644))
	return path
}

func (f *fixture) blob(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(f.fs, path)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := afero.ReadDir(f.fs, blobDir)
	require.NoError(t, err)
	return len(entries)
}

func TestScan_ExplodesJSONArray(t *testing.T) {
	f := newFixture(t)
	src := f.drop(t, "finance", "report.json", `[{"b":1,"a":2},{"q":"x"},[1,2]]`)

	res, err := f.ing.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Recorded)
	assert.Equal(t, 3, res.Items)
	assert.Equal(t, 4, f.catalog.count())

	container, containerID := f.catalog.byName("report.json")
	require.NotNil(t, container)
	assert.Equal(t, domain.TypeJSONContainer, container.Type)
	assert.Equal(t, []string{domain.TagJSONContainer, domain.TagUnclassifiedList}, container.Tags)
	assert.Equal(t, "finance", container.SourceName())
	assert.Contains(t, container.ContentSummary, "Contains: list of 3 JSON items.")

	for idx := range 3 {
		item, _ := f.catalog.byName(fmt.Sprintf("report_item_%d.json", idx))
		require.NotNil(t, item, "item %d", idx)
		assert.Equal(t, domain.TypeJSONItem, item.Type)
		assert.Equal(t, []string{domain.TagJSONItem, domain.TagUnclassified}, item.Tags)
		require.NotNil(t, item.SourceOriginalID)
		assert.Equal(t, containerID, *item.SourceOriginalID)
		require.NotNil(t, item.SourceItemKey)
		assert.Equal(t, fmt.Sprint(idx), *item.SourceItemKey)
		assert.Contains(t, filepath.Base(item.ContentLocation), fmt.Sprintf("report_item_%d_", idx))
	}

	first, _ := f.catalog.byName("report_item_0.json")
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": 2\n}", f.blob(t, first.ContentLocation))
	assert.Contains(t, first.ContentSummary, "JSON object, keys: 2")
	assert.Contains(t, first.ContentSummary, `Data snippet: {"b":1,"a":2}`)

	exists, err := afero.Exists(f.fs, src)
	require.NoError(t, err)
	assert.False(t, exists, "source file should be removed")
	assert.Equal(t, 4, f.blobCount(t))
}

func TestScan_InvalidJSON(t *testing.T) {
	f := newFixture(t)
	f.drop(t, "finance", "broken.json", `{"a": [1, 2`)

	res, err := f.ing.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recorded)

	obj, _ := f.catalog.byName("broken.json")
	require.NotNil(t, obj)
	assert.Equal(t, domain.TypeOctetStream, obj.Type)
	assert.Equal(t, []string{domain.TagInvalidJSON, domain.TagUnclassified}, obj.Tags)
	assert.True(t, strings.HasPrefix(obj.ContentSummary, "File: broken.json (invalid JSON). Type: application/octet-stream"))
}

func TestScan_JSONWithoutExplosion(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		summary string
	}{
		{name: "object.json", body: `{"a":1,"b":2}`, summary: "JSON object, keys: 2"},
		{name: "empty.json", body: `[]`, summary: "JSON array, elements: 0"},
		{name: "scalar.json", body: `42`, summary: "JSON primitive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.drop(t, "internal_data", tt.name, tt.body)

			_, err := f.ing.Scan(context.Background())
			require.NoError(t, err)

			require.Equal(t, 1, f.catalog.count())
			obj, _ := f.catalog.byName(tt.name)
			assert.Equal(t, domain.TypeJSON, obj.Type)
			assert.Equal(t, []string{domain.TagJSONObject, domain.TagUnclassified}, obj.Tags)
			assert.Contains(t, obj.ContentSummary, tt.summary)
		})
	}
}

func TestScan_TextSummary(t *testing.T) {
	f := newFixture(t)
	f.drop(t, "web_scraped", "short.txt", "hello")
	f.drop(t, "web_scraped", "long.md", strings.Repeat("x", 250))

	_, err := f.ing.Scan(context.Background())
	require.NoError(t, err)

	short, _ := f.catalog.byName("short.txt")
	require.NotNil(t, short)
	assert.Equal(t, `File: short.txt. Type: text/plain. Size: 0.00KB. Snippet: "hello"`, short.ContentSummary)
	assert.Equal(t, []string{domain.TagUnclassified}, short.Tags)

	long, _ := f.catalog.byName("long.md")
	require.NotNil(t, long)
	assert.Equal(t, "text/markdown", long.Type)
	assert.Contains(t, long.ContentSummary, `Snippet: "`+strings.Repeat("x", 200)+`..."`)
}

func TestScan_InsertFailureKeepsSource(t *testing.T) {
	f := newFixture(t)
	f.catalog.failFor = func(*domain.NewDataObject) bool { return true }
	src := f.drop(t, "finance", "notes.txt", "keep me")

	res, err := f.ing.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	exists, err := afero.Exists(f.fs, src)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Zero(t, f.blobCount(t), "leased blob must be released")
}

func TestScan_ItemFailureReleasesOnlyThatItem(t *testing.T) {
	f := newFixture(t)
	f.catalog.failFor = func(o *domain.NewDataObject) bool { return o.Name == "list_item_1.json" }
	src := f.drop(t, "finance", "list.json", `[1,2,3]`)

	res, err := f.ing.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Items)
	assert.Equal(t, 3, f.catalog.count())
	assert.Equal(t, 3, f.blobCount(t))
	exists, err := afero.Exists(f.fs, src)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestScan_CreatesRootAndIgnoresLooseFiles(t *testing.T) {
	f := newFixture(t)

	res, err := f.ing.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Files)

	isDir, err := afero.IsDir(f.fs, inputDir)
	require.NoError(t, err)
	assert.True(t, isDir)

	require.NoError(t, afero.WriteFile(f.fs, filepath.Join(inputDir, "loose.txt"), []byte("x"), 0o644))
	res, err = f.ing.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Files)
	assert.Zero(t, f.catalog.count())
}

func TestDetectType(t *testing.T) {
	fs := afero.NewMemMapFs()
	pngHeader := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"
	files := map[string]string{
		"/in/photo.JPG": "x",
		"/in/page.html": "<html></html>",
		"/in/noext":     pngHeader,
		"/in/readme":    "plain words here",
	}
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
	}

	assert.Equal(t, "image/jpeg", ingestor.DetectType(fs, "/in/photo.JPG"))
	assert.Equal(t, "text/html", ingestor.DetectType(fs, "/in/page.html"))
	assert.Equal(t, "image/png", ingestor.DetectType(fs, "/in/noext"))
	assert.Equal(t, "text/plain", ingestor.DetectType(fs, "/in/readme"))
	assert.Equal(t, domain.TypeOctetStream, ingestor.DetectType(fs, "/in/missing"))
}

func TestRun_ScansImmediatelyAndStops(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := blobstore.NewWithFs(fs, blobDir)
	require.NoError(t, err)
	catalog := &memCatalog{}
	ing := ingestor.NewIngestor(nil, fs, store, catalog, ingestor.Config{
		InputDir: inputDir,
		Interval: time.Hour,
	}, nil)

	require.NoError(t, fs.MkdirAll(filepath.Join(inputDir, "finance"), 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(inputDir, "finance", "a.txt"), []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	require.Eventually(t, func() bool { return catalog.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
