// Package api exposes the catalog over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/catalog/internal/blobstore"
	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/graph"
)

const msgNotFound = "Data object not found"

// CatalogStore is the subset of the catalog repository used by the API.
type CatalogStore interface {
	Insert(ctx context.Context, obj *domain.NewDataObject) (string, error)
	GetByID(ctx context.Context, id string) (*domain.DataObject, error)
	Update(ctx context.Context, id string, patch domain.Patch) (bool, error)
	List(ctx context.Context, filter domain.Filter, page domain.Page) ([]*domain.DataObject, error)
	Count(ctx context.Context, filter domain.Filter) (int, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.DataObject, error)
	Reset(ctx context.Context, id string) (bool, error)
}

// BlobStore holds the bytes behind catalog entries.
type BlobStore interface {
	WriteFrom(ctx context.Context, r io.Reader, originalName, suffix string) (*blobstore.Lease, error)
	Open(path string) (io.ReadCloser, error)
	Stat(path string) (os.FileInfo, error)
	Remove(path string) error
}

// GraphBuilder builds the tag co-occurrence graph.
type GraphBuilder interface {
	Build(ctx context.Context, minFrequency, minLinkStrength int) (*domain.Graph, error)
}

// Handler handles HTTP requests for the catalog API.
type Handler struct {
	catalog CatalogStore
	blobs   BlobStore
	graph   GraphBuilder
	logger  logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(catalog CatalogStore, blobs BlobStore, graphBuilder GraphBuilder, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		catalog: catalog,
		blobs:   blobs,
		graph:   graphBuilder,
		logger:  log.With(logger.Component("api")),
	}
}

func (h *Handler) log(c *gin.Context) logger.Logger {
	return logger.FromContext(c.Request.Context(), h.logger)
}

// fail maps an error onto a response. Unexpected errors are logged and
// reported with the generic message.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidPage),
		errors.Is(err, domain.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log(c).Error(msg, logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// ListObjects handles GET /api/v1/objects
func (h *Handler) ListObjects(c *gin.Context) {
	filter := domain.Filter{
		Type:         c.Query("type"),
		Source:       c.Query("source"),
		NameContains: c.Query("name_like"),
		Tags:         splitList(c.Query("tags")),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := parseStatus(raw)
		if err != nil {
			h.fail(c, err, "")
			return
		}
		filter.Status = status
	}

	limit, err := parseInt(c, "limit", domain.DefaultPageLimit)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	offset, err := parseInt(c, "offset", 0)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	page := domain.Page{Limit: limit, Offset: offset}.Normalize()

	ctx := c.Request.Context()
	total, err := h.catalog.Count(ctx, filter)
	if err != nil {
		h.fail(c, err, "Failed to count data objects")
		return
	}
	objects, err := h.catalog.List(ctx, filter, page)
	if err != nil {
		h.fail(c, err, "Failed to list data objects")
		return
	}

	c.JSON(http.StatusOK, ListObjectsResponse{
		TotalRecords:    total,
		CountInResponse: len(objects),
		LimitUsed:       page.Limit,
		OffsetUsed:      page.Offset,
		Data:            objects,
	})
}

// GetObject handles GET /api/v1/objects/:id
func (h *Handler) GetObject(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	obj, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to load data object")
		return
	}
	c.JSON(http.StatusOK, obj)
}

// GetObjectContent handles GET /api/v1/objects/:id/content
func (h *Handler) GetObjectContent(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	obj, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to load data object")
		return
	}

	info, err := h.blobs.Stat(obj.ContentLocation)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		h.fail(c, err, "Failed to read content")
		return
	}
	r, err := h.blobs.Open(obj.ContentLocation)
	if err != nil {
		h.fail(c, err, "Failed to read content")
		return
	}
	defer r.Close()

	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": obj.Name}),
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType(obj.Type), r, headers)
}

// contentType maps a catalog type onto a MIME type for downloads.
func contentType(typ string) string {
	switch {
	case typ == domain.TypeJSONContainer, typ == domain.TypeJSONItem:
		return domain.TypeJSON
	case strings.Contains(typ, "/"):
		return typ
	}
	return domain.TypeOctetStream
}

// CreateObject handles POST /api/v1/objects
func (h *Handler) CreateObject(c *gin.Context) {
	obj, err := createForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	lease, err := h.blobs.WriteFrom(ctx, src, fileHeader.Filename, "")
	if err != nil {
		h.fail(c, err, "Failed to store file")
		return
	}
	defer lease.Release()

	obj.ContentLocation = lease.Path()
	id, err := h.catalog.Insert(ctx, obj)
	if err != nil {
		h.fail(c, err, "Failed to create data object")
		return
	}
	lease.Commit()

	created, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err, "Failed to load data object")
		return
	}

	h.log(c).Info("Data object created",
		logger.ObjectID(id),
		logger.String("name", created.Name),
		logger.String("type", created.Type),
	)
	c.JSON(http.StatusCreated, created)
}

// UpdateObject handles PUT /api/v1/objects/:id
func (h *Handler) UpdateObject(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	patch, err := updateForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fileHeader, fileErr := c.FormFile("file")
	hasFile := fileErr == nil
	if patch.IsEmpty() && !hasFile {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoFields.Error()})
		return
	}

	ctx := c.Request.Context()
	current, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err, "Failed to load data object")
		return
	}

	var lease *blobstore.Lease
	if hasFile {
		src, openErr := fileHeader.Open()
		if openErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
		lease, err = h.blobs.WriteFrom(ctx, src, fileHeader.Filename, "")
		_ = src.Close()
		if err != nil {
			h.fail(c, err, "Failed to store file")
			return
		}
		defer lease.Release()
		patch.ContentLocation = domain.StringPtr(lease.Path())
	}

	updated, err := h.catalog.Update(ctx, id, patch)
	if err != nil {
		h.fail(c, err, "Failed to update data object")
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}

	if lease != nil {
		lease.Commit()
		if removeErr := h.blobs.Remove(current.ContentLocation); removeErr != nil {
			h.log(c).Warn("Failed to remove replaced blob",
				logger.ObjectID(id),
				logger.String("path", current.ContentLocation),
				logger.Error(removeErr),
			)
		}
	}

	obj, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err, "Failed to load data object")
		return
	}
	c.JSON(http.StatusOK, obj)
}

// DeleteObject handles DELETE /api/v1/objects/:id
func (h *Handler) DeleteObject(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	ctx := c.Request.Context()
	obj, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err, "Failed to load data object")
		return
	}

	var children []*domain.DataObject
	if obj.IsContainer() {
		if children, err = h.catalog.ListChildren(ctx, id); err != nil {
			h.fail(c, err, "Failed to list container items")
			return
		}
	}

	h.removeBlob(c, obj)

	deleted, err := h.catalog.Delete(ctx, id)
	if err != nil {
		h.fail(c, err, "Failed to delete data object")
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}

	// Item rows are gone with the container; their blobs are not.
	for _, child := range children {
		h.removeBlob(c, child)
	}

	h.log(c).Info("Data object deleted", logger.ObjectID(id), logger.Int("children", len(children)))
	c.JSON(http.StatusOK, DeleteObjectResponse{
		Message:        "Data object deleted",
		ID:             id,
		ChildrenPurged: len(children),
	})
}

func (h *Handler) removeBlob(c *gin.Context, obj *domain.DataObject) {
	if err := h.blobs.Remove(obj.ContentLocation); err != nil {
		h.log(c).Warn("Failed to remove blob",
			logger.ObjectID(obj.ID),
			logger.String("path", obj.ContentLocation),
			logger.Error(err),
		)
	}
}

// ResetObject handles POST /api/v1/objects/:id/reset
func (h *Handler) ResetObject(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	ctx := c.Request.Context()
	obj, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err, "Failed to load data object")
		return
	}
	if obj.Status != domain.StatusError {
		c.JSON(http.StatusConflict, gin.H{"error": "only entries in status error can be reset"})
		return
	}

	reset, err := h.catalog.Reset(ctx, id)
	if err != nil {
		h.fail(c, err, "Failed to reset data object")
		return
	}
	if !reset {
		c.JSON(http.StatusConflict, gin.H{"error": "data object changed status concurrently"})
		return
	}

	if obj, err = h.catalog.GetByID(ctx, id); err != nil {
		h.fail(c, err, "Failed to load data object")
		return
	}
	h.log(c).Info("Data object reset", logger.ObjectID(id))
	c.JSON(http.StatusOK, obj)
}

// GetTagGraph handles GET /api/v1/tags/graph
func (h *Handler) GetTagGraph(c *gin.Context) {
	minFreq, err := parseNonNegative(c, "min_freq", graph.DefaultMinFrequency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	minStrength, err := parseNonNegative(c, "min_strength", graph.DefaultMinLinkStrength)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.graph.Build(c.Request.Context(), minFreq, minStrength)
	if err != nil {
		h.fail(c, err, "Failed to build tag graph")
		return
	}

	c.JSON(http.StatusOK, g)
}
