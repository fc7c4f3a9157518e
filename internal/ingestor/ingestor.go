// Package ingestor discovers files dropped into per-source input folders,
// stores them as blobs and records catalog entries for them.
package ingestor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/blobstore"
	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

const (
	dirPerm = 0o755

	defaultInterval = 10 * time.Second
	defaultDebounce = 500 * time.Millisecond

	invalidJSONSuffix = " (invalid JSON)"
	itemIndent        = "  "

	// Entry kinds reported to the recorder.
	KindFile        = "file"
	KindContainer   = "container"
	KindItem        = "item"
	KindInvalidJSON = "invalid_json"
)

// Catalog records new entries.
type Catalog interface {
	Insert(ctx context.Context, obj *domain.NewDataObject) (string, error)
}

// Blobs stores and reads blobs.
type Blobs interface {
	Copy(ctx context.Context, srcPath, originalName, suffix string) (*blobstore.Lease, error)
	Write(ctx context.Context, data []byte, originalName, suffix string) (*blobstore.Lease, error)
	Open(path string) (io.ReadCloser, error)
	Stat(path string) (os.FileInfo, error)
}

// Recorder receives ingestion metrics.
type Recorder interface {
	RecordIngest(ctx context.Context, source, kind string)
	RecordIngestFailure(ctx context.Context, source string)
	RecordScan(duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordIngest(context.Context, string, string) {}
func (nopRecorder) RecordIngestFailure(context.Context, string)  {}
func (nopRecorder) RecordScan(time.Duration)                     {}

// Config holds ingestor settings.
type Config struct {
	InputDir string
	Interval time.Duration
	// Watch enables an fsnotify trigger on the input folders.
	Watch    bool
	Debounce time.Duration
}

// ScanResult counts what one scan did.
type ScanResult struct {
	Sources  int
	Files    int
	Recorded int
	Items    int
	Failed   int
}

// Ingestor turns input files into catalog entries.
type Ingestor struct {
	fs      afero.Fs
	blobs   Blobs
	catalog Catalog
	cfg     Config
	metrics Recorder
	logger  logger.Logger
}

// NewIngestor creates an ingestor reading input files from fs.
func NewIngestor(log logger.Logger, fs afero.Fs, blobs Blobs, catalog Catalog, cfg Config, metrics Recorder) *Ingestor {
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	return &Ingestor{
		fs:      fs,
		blobs:   blobs,
		catalog: catalog,
		cfg:     cfg,
		metrics: metrics,
		logger:  log.With(logger.Component("ingestor")),
	}
}

// Scan processes every file in every source folder once. Per-file failures
// are logged and counted; only a failure to read the input root is returned.
func (i *Ingestor) Scan(ctx context.Context) (*ScanResult, error) {
	start := time.Now()
	defer func() { i.metrics.RecordScan(time.Since(start)) }()

	root := i.cfg.InputDir
	if err := i.fs.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create input dir %s: %w", root, err)
	}
	sources, err := afero.ReadDir(i.fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read input dir %s: %w", root, err)
	}

	result := &ScanResult{}
	for _, src := range sources {
		if !src.IsDir() {
			continue
		}
		if ctx.Err() != nil {
			return result, nil
		}
		result.Sources++
		i.scanSource(ctx, src.Name(), filepath.Join(root, src.Name()), result)
	}

	if result.Files > 0 {
		i.logger.Info("Scan complete",
			logger.Int("sources", result.Sources),
			logger.Int("files", result.Files),
			logger.Int("recorded", result.Recorded),
			logger.Int("items", result.Items),
			logger.Int("failed", result.Failed),
			logger.Duration("duration", time.Since(start)),
		)
	}
	return result, nil
}

func (i *Ingestor) scanSource(ctx context.Context, source, dir string, result *ScanResult) {
	files, err := afero.ReadDir(i.fs, dir)
	if err != nil {
		i.logger.Warn("Failed to read source dir", logger.String("source", source), logger.Error(err))
		return
	}

	for _, f := range files {
		if !f.Mode().IsRegular() {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		result.Files++

		path := filepath.Join(dir, f.Name())
		items, err := i.ingestFile(ctx, source, path, f.Name())
		if err != nil {
			result.Failed++
			i.metrics.RecordIngestFailure(ctx, source)
			i.logger.Error("Failed to ingest file",
				logger.String("source", source),
				logger.String("file", f.Name()),
				logger.Error(err),
			)
			continue
		}
		result.Recorded++
		result.Items += items
	}
}

// ingestFile stores and records one file, returning the number of exploded
// items. The source file is removed only once its entry is recorded.
func (i *Ingestor) ingestFile(ctx context.Context, source, path, name string) (int, error) {
	typ := DetectType(i.fs, path)

	lease, err := i.blobs.Copy(ctx, path, name, "")
	if err != nil {
		return 0, err
	}
	defer lease.Release()

	if typ == domain.TypeJSON {
		return i.ingestJSON(ctx, source, path, name, lease)
	}

	obj := &domain.NewDataObject{
		Name:            name,
		Type:            typ,
		Source:          domain.StringPtr(source),
		ContentLocation: lease.Path(),
		ContentSummary:  i.summarize(lease.Path(), typ, name),
		Tags:            []string{domain.TagUnclassified},
	}
	if _, err = i.record(ctx, obj, lease, KindFile); err != nil {
		return 0, err
	}
	i.removeSource(path)
	return 0, nil
}

func (i *Ingestor) ingestJSON(ctx context.Context, source, path, name string, lease *blobstore.Lease) (int, error) {
	data, err := i.readBlob(lease.Path())
	if err != nil {
		return 0, err
	}

	if !json.Valid(data) {
		obj := &domain.NewDataObject{
			Name:            name,
			Type:            domain.TypeOctetStream,
			Source:          domain.StringPtr(source),
			ContentLocation: lease.Path(),
			ContentSummary:  i.summarize(lease.Path(), domain.TypeOctetStream, name+invalidJSONSuffix),
			Tags:            []string{domain.TagInvalidJSON, domain.TagUnclassified},
		}
		if _, err = i.record(ctx, obj, lease, KindInvalidJSON); err != nil {
			return 0, err
		}
		i.removeSource(path)
		return 0, nil
	}

	var items []json.RawMessage
	if !isArray(data) || json.Unmarshal(data, &items) != nil || len(items) == 0 {
		obj := &domain.NewDataObject{
			Name:            name,
			Type:            domain.TypeJSON,
			Source:          domain.StringPtr(source),
			ContentLocation: lease.Path(),
			ContentSummary:  i.summarize(lease.Path(), domain.TypeJSON, name),
			Tags:            []string{domain.TagJSONObject, domain.TagUnclassified},
		}
		if _, err = i.record(ctx, obj, lease, KindFile); err != nil {
			return 0, err
		}
		i.removeSource(path)
		return 0, nil
	}

	container := &domain.NewDataObject{
		Name:            name,
		Type:            domain.TypeJSONContainer,
		Source:          domain.StringPtr(source),
		ContentLocation: lease.Path(),
		ContentSummary:  i.summarize(lease.Path(), domain.TypeJSONContainer, name),
		Tags:            []string{domain.TagJSONContainer, domain.TagUnclassifiedList},
	}
	containerID, err := i.record(ctx, container, lease, KindContainer)
	if err != nil {
		return 0, err
	}

	// A recorded container is always exploded in full.
	itemCtx := context.WithoutCancel(ctx)
	recorded := 0
	for idx, raw := range items {
		if err = i.ingestItem(itemCtx, source, name, containerID, idx, raw); err != nil {
			i.metrics.RecordIngestFailure(ctx, source)
			i.logger.Warn("Failed to ingest JSON item",
				logger.String("source", source),
				logger.String("file", name),
				logger.Int("index", idx),
				logger.Error(err),
			)
			continue
		}
		recorded++
	}

	i.removeSource(path)
	return recorded, nil
}

func (i *Ingestor) ingestItem(ctx context.Context, source, name, containerID string, idx int, raw json.RawMessage) error {
	var body bytes.Buffer
	if err := json.Indent(&body, raw, "", itemIndent); err != nil {
		return fmt.Errorf("failed to format item: %w", err)
	}

	key := strconv.Itoa(idx)
	lease, err := i.blobs.Write(ctx, body.Bytes(), name, "item_"+key)
	if err != nil {
		return err
	}
	defer lease.Release()

	displayName := fmt.Sprintf("%s_item_%d.json", strings.TrimSuffix(name, filepath.Ext(name)), idx)
	obj := &domain.NewDataObject{
		Name:             displayName,
		Type:             domain.TypeJSONItem,
		Source:           domain.StringPtr(source),
		ContentLocation:  lease.Path(),
		ContentSummary:   i.summarize(lease.Path(), domain.TypeJSONItem, displayName),
		Tags:             []string{domain.TagJSONItem, domain.TagUnclassified},
		SourceOriginalID: domain.StringPtr(containerID),
		SourceItemKey:    domain.StringPtr(key),
	}
	_, err = i.record(ctx, obj, lease, KindItem)
	return err
}

// record inserts obj and commits its lease on success.
func (i *Ingestor) record(ctx context.Context, obj *domain.NewDataObject, lease *blobstore.Lease, kind string) (string, error) {
	id, err := i.catalog.Insert(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("failed to record %s: %w", obj.Name, err)
	}
	lease.Commit()
	i.metrics.RecordIngest(ctx, obj.SourceName(), kind)

	i.logger.Debug("Entry recorded",
		logger.ObjectID(id),
		logger.String("name", obj.Name),
		logger.String("type", obj.Type),
	)
	return id, nil
}

func (i *Ingestor) removeSource(path string) {
	if err := i.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		i.logger.Warn("Failed to remove ingested source file", logger.String("path", path), logger.Error(err))
	}
}

func isArray(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
