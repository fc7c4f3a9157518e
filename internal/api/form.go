package api

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

var errNoFields = errors.New("no fields to update")

// parseID validates the :id path parameter.
func parseID(c *gin.Context) (string, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidID, raw)
	}
	return id.String(), nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseScore(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid quality_score %q", raw)
	}
	return domain.ClampScore(v), nil
}

func parseStatus(raw string) (domain.Status, error) {
	status := domain.Status(strings.TrimSpace(raw))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, raw)
	}
	return status, nil
}

// parseInt reads an optional integer pagination parameter. Range is left to
// domain.Page.Normalize.
func parseInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidPage, key)
	}
	return v, nil
}

// parseNonNegative reads an optional integer query parameter.
func parseNonNegative(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

// createForm parses the fields of a create request. The file part is read
// separately.
func createForm(c *gin.Context) (*domain.NewDataObject, error) {
	name := strings.TrimSpace(c.PostForm("name"))
	typ := strings.TrimSpace(c.PostForm("type"))
	rawStatus := c.PostForm("status")
	if name == "" || typ == "" || strings.TrimSpace(rawStatus) == "" {
		return nil, errors.New("name, type and status are required")
	}
	status, err := parseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	obj := &domain.NewDataObject{
		Name:           name,
		Type:           typ,
		Status:         status,
		ContentSummary: c.PostForm("content"),
		Tags:           splitList(c.PostForm("tags")),
	}
	if source := strings.TrimSpace(c.PostForm("source")); source != "" {
		obj.Source = domain.StringPtr(source)
	}
	if raw, ok := c.GetPostForm("quality_score"); ok && raw != "" {
		if obj.QualityScore, err = parseScore(raw); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// updateForm builds a patch from the fields present in an update request.
func updateForm(c *gin.Context) (domain.Patch, error) {
	var patch domain.Patch

	if v, ok := c.GetPostForm("name"); ok {
		patch.Name = domain.StringPtr(v)
	}
	if v, ok := c.GetPostForm("type"); ok {
		patch.Type = domain.StringPtr(v)
	}
	if v, ok := c.GetPostForm("source"); ok {
		patch.Source = domain.StringPtr(v)
	}
	if v, ok := c.GetPostForm("content"); ok {
		patch.ContentSummary = domain.StringPtr(v)
	}
	if v, ok := c.GetPostForm("quality_score"); ok {
		score, err := parseScore(v)
		if err != nil {
			return patch, err
		}
		patch.QualityScore = &score
	}
	if v, ok := c.GetPostForm("status"); ok {
		status, err := parseStatus(v)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	if v, ok := c.GetPostForm("tags"); ok {
		patch.Tags = domain.TagsOrDefault(splitList(v))
	}
	return patch, nil
}
