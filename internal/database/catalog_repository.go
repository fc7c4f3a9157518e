package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

const objectColumns = `id, name, type, source, content_location, content, quality_score, status,
	created_at, last_updated, source_original_id, source_item_key`

const (
	insertObjectQuery = `INSERT INTO data_objects (` + objectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	upsertTagQuery = `INSERT INTO tags (name) VALUES (?)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id`
	linkTagQuery = `INSERT INTO data_object_tags (data_object_id, tag_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`
	unlinkTagsQuery  = `DELETE FROM data_object_tags WHERE data_object_id = ?`
	linkedTagsQuery  = `SELECT DISTINCT tag_id FROM data_object_tags WHERE data_object_id = ?`
	cascadeTagsQuery = `SELECT DISTINCT dot.tag_id FROM data_object_tags dot
		JOIN data_objects o ON o.id = dot.data_object_id
		WHERE o.id = ? OR o.source_original_id = ?`
	lockTagsQuery  = `SELECT id FROM tags WHERE id IN (?) ORDER BY id FOR UPDATE`
	pruneTagsQuery = `DELETE FROM tags WHERE id IN (?)
		AND NOT EXISTS (SELECT 1 FROM data_object_tags WHERE tag_id = tags.id)`
	pageTagsQuery = `SELECT dot.data_object_id, t.name
		FROM data_object_tags dot
		JOIN tags t ON t.id = dot.tag_id
		WHERE dot.data_object_id IN (?)
		ORDER BY t.name`
)

// CatalogRepository persists data objects and their tags.
type CatalogRepository struct {
	db    *sqlx.DB
	now   func() time.Time
	newID func() (string, error)
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{
		db: db,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
}

// Ping verifies the database connection.
func (r *CatalogRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert records a new data object with its tags and returns its id.
func (r *CatalogRepository) Insert(ctx context.Context, obj *domain.NewDataObject) (string, error) {
	status := obj.Status
	if status == "" {
		status = domain.StatusNew
	}
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	id, err := r.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	now := r.now()

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, execErr := tx.ExecContext(ctx, tx.Rebind(insertObjectQuery),
			id, obj.Name, obj.Type, obj.Source, obj.ContentLocation, obj.ContentSummary,
			domain.ClampScore(obj.QualityScore), status, now, now,
			obj.SourceOriginalID, obj.SourceItemKey,
		); execErr != nil {
			return fmt.Errorf("failed to insert data object: %w", execErr)
		}
		return attachTags(ctx, tx, id, domain.TagsOrDefault(obj.Tags))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetByID returns one data object with its tags.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*domain.DataObject, error) {
	var obj domain.DataObject
	query := r.db.Rebind(`SELECT ` + objectColumns + ` FROM data_objects WHERE id = ?`)
	if err := r.db.GetContext(ctx, &obj, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("data object %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get data object: %w", err)
	}

	if err := r.loadTags(ctx, []*domain.DataObject{&obj}); err != nil {
		return nil, err
	}
	return &obj, nil
}

// Update applies a partial update. last_updated is always refreshed. It
// returns false when no row matched.
func (r *CatalogRepository) Update(ctx context.Context, id string, patch domain.Patch) (bool, error) {
	sets, args, err := patchAssignments(patch)
	if err != nil {
		return false, err
	}
	sets = append(sets, "last_updated = ?")
	args = append(args, r.now(), id)

	query := `UPDATE data_objects SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	updated := false
	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		result, execErr := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if execErr != nil {
			return fmt.Errorf("failed to update data object: %w", execErr)
		}
		rows, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			return fmt.Errorf("failed to get rows affected: %w", rowsErr)
		}
		if rows == 0 {
			return nil
		}
		updated = true

		if patch.Tags == nil {
			return nil
		}
		var unlinked []int64
		if execErr = tx.SelectContext(ctx, &unlinked, tx.Rebind(linkedTagsQuery), id); execErr != nil {
			return fmt.Errorf("failed to load current tags: %w", execErr)
		}
		if _, execErr = tx.ExecContext(ctx, tx.Rebind(unlinkTagsQuery), id); execErr != nil {
			return fmt.Errorf("failed to clear tags: %w", execErr)
		}
		if tagErr := attachTags(ctx, tx, id, domain.TagsOrDefault(patch.Tags)); tagErr != nil {
			return tagErr
		}
		return pruneTags(ctx, tx, unlinked)
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

func patchAssignments(p domain.Patch) ([]string, []any, error) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Type != nil {
		add("type", *p.Type)
	}
	if p.Source != nil {
		add("source", *p.Source)
	}
	if p.ContentLocation != nil {
		add("content_location", *p.ContentLocation)
	}
	if p.ContentSummary != nil {
		add("content", *p.ContentSummary)
	}
	if p.QualityScore != nil {
		add("quality_score", domain.ClampScore(*p.QualityScore))
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *p.Status)
		}
		add("status", *p.Status)
	}
	return sets, args, nil
}

// List returns one page of data objects matching the filter, newest first.
func (r *CatalogRepository) List(ctx context.Context, filter domain.Filter, page domain.Page) ([]*domain.DataObject, error) {
	page = page.Normalize()

	where, args := buildWhere(filter)
	query := `SELECT ` + objectColumns + ` FROM data_objects` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)

	return r.selectObjects(ctx, query, args...)
}

// Count returns the number of data objects matching the filter.
func (r *CatalogRepository) Count(ctx context.Context, filter domain.Filter) (int, error) {
	where, args := buildWhere(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM data_objects`+where), args...); err != nil {
		return 0, fmt.Errorf("failed to count data objects: %w", err)
	}
	return total, nil
}

// Delete removes a data object. Exploded items cascade with their container
// and orphaned tags are pruned. It returns false when no row matched.
func (r *CatalogRepository) Delete(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var unlinked []int64
		if execErr := tx.SelectContext(ctx, &unlinked, tx.Rebind(cascadeTagsQuery), id, id); execErr != nil {
			return fmt.Errorf("failed to load linked tags: %w", execErr)
		}
		result, execErr := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM data_objects WHERE id = ?`), id)
		if execErr != nil {
			return fmt.Errorf("failed to delete data object: %w", execErr)
		}
		rows, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			return fmt.Errorf("failed to get rows affected: %w", rowsErr)
		}
		if rows == 0 {
			return nil
		}
		deleted = true
		return pruneTags(ctx, tx, unlinked)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// ListChildren returns the items exploded from a container.
func (r *CatalogRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.DataObject, error) {
	query := `SELECT ` + objectColumns + ` FROM data_objects WHERE source_original_id = ? ORDER BY created_at, id`
	return r.selectObjects(ctx, query, parentID)
}

// ListPending returns up to limit entries in status new, oldest first.
func (r *CatalogRepository) ListPending(ctx context.Context, limit int) ([]*domain.DataObject, error) {
	query := `SELECT ` + objectColumns + ` FROM data_objects WHERE status = ? ORDER BY created_at, id LIMIT ?`
	return r.selectObjects(ctx, query, domain.StatusNew, limit)
}

// Claim moves an entry from new to processing. It returns false when another
// worker got there first.
func (r *CatalogRepository) Claim(ctx context.Context, id string) (bool, error) {
	query := r.db.Rebind(`UPDATE data_objects SET status = ?, last_updated = ? WHERE id = ? AND status = ?`)
	result, err := r.db.ExecContext(ctx, query, domain.StatusProcessing, r.now(), id, domain.StatusNew)
	if err != nil {
		return false, fmt.Errorf("failed to claim data object: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// Reset moves one entry from error back to new.
func (r *CatalogRepository) Reset(ctx context.Context, id string) (bool, error) {
	query := r.db.Rebind(`UPDATE data_objects SET status = ?, last_updated = ? WHERE id = ? AND status = ?`)
	result, err := r.db.ExecContext(ctx, query, domain.StatusNew, r.now(), id, domain.StatusError)
	if err != nil {
		return false, fmt.Errorf("failed to reset data object: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// ResetErrors moves every entry in error back to new.
func (r *CatalogRepository) ResetErrors(ctx context.Context) (int64, error) {
	query := r.db.Rebind(`UPDATE data_objects SET status = ?, last_updated = ? WHERE status = ?`)
	result, err := r.db.ExecContext(ctx, query, domain.StatusNew, r.now(), domain.StatusError)
	if err != nil {
		return 0, fmt.Errorf("failed to reset errored data objects: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// CountByStatus returns the number of entries per status.
func (r *CatalogRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	var rows []struct {
		Status domain.Status `db:"status"`
		Total  int           `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS total FROM data_objects GROUP BY status`); err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[domain.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *CatalogRepository) selectObjects(ctx context.Context, query string, args ...any) ([]*domain.DataObject, error) {
	objects := []*domain.DataObject{}
	if err := r.db.SelectContext(ctx, &objects, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list data objects: %w", err)
	}
	if err := r.loadTags(ctx, objects); err != nil {
		return nil, err
	}
	return objects, nil
}

// loadTags fills Tags for a page of objects with one IN query.
func (r *CatalogRepository) loadTags(ctx context.Context, objects []*domain.DataObject) error {
	if len(objects) == 0 {
		return nil
	}

	ids := make([]string, len(objects))
	byID := make(map[string]*domain.DataObject, len(objects))
	for i, obj := range objects {
		ids[i] = obj.ID
		obj.Tags = []string{}
		byID[obj.ID] = obj
	}

	query, args, err := sqlx.In(pageTagsQuery, ids)
	if err != nil {
		return fmt.Errorf("failed to build tag query: %w", err)
	}

	var rows []struct {
		ObjectID string `db:"data_object_id"`
		Name     string `db:"name"`
	}
	if err = r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}

	for _, row := range rows {
		if obj, ok := byID[row.ObjectID]; ok {
			obj.Tags = append(obj.Tags, row.Name)
		}
	}
	return nil
}

func (r *CatalogRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func attachTags(ctx context.Context, tx *sqlx.Tx, objectID string, tags []string) error {
	upsert := tx.Rebind(upsertTagQuery)
	link := tx.Rebind(linkTagQuery)

	for _, name := range tags {
		var tagID int64
		if err := tx.QueryRowxContext(ctx, upsert, name).Scan(&tagID); err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, link, objectID, tagID); err != nil {
			return fmt.Errorf("failed to link tag %q: %w", name, err)
		}
	}
	return nil
}

// pruneTags deletes the given tags once nothing links to them. On postgres
// the rows are locked first so the delete sees links committed by a
// concurrent writer that upserted the same tag; sqlite has a single writer.
func pruneTags(ctx context.Context, tx *sqlx.Tx, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	if tx.DriverName() == DriverPostgres {
		query, args, err := sqlx.In(lockTagsQuery, tagIDs)
		if err != nil {
			return fmt.Errorf("failed to build tag lock: %w", err)
		}
		var locked []int64
		if err = tx.SelectContext(ctx, &locked, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to lock tags: %w", err)
		}
	}

	query, args, err := sqlx.In(pruneTagsQuery, tagIDs)
	if err != nil {
		return fmt.Errorf("failed to build tag prune: %w", err)
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to prune orphan tags: %w", err)
	}
	return nil
}
