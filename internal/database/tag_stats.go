package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

// TagStatsRepository reads tag usage aggregates for the tag graph.
type TagStatsRepository struct {
	db *sqlx.DB
}

// NewTagStatsRepository creates a new tag stats repository.
func NewTagStatsRepository(db *sqlx.DB) *TagStatsRepository {
	return &TagStatsRepository{db: db}
}

// TagFrequencies returns every tag used by at least minFrequency entries.
func (r *TagStatsRepository) TagFrequencies(ctx context.Context, minFrequency int) ([]domain.TagFrequency, error) {
	query := r.db.Rebind(`
		SELECT t.id, t.name, COUNT(DISTINCT dot.data_object_id) AS frequency
		FROM tags t
		JOIN data_object_tags dot ON dot.tag_id = t.id
		GROUP BY t.id, t.name
		HAVING COUNT(DISTINCT dot.data_object_id) >= ?`)

	rows := []domain.TagFrequency{}
	if err := r.db.SelectContext(ctx, &rows, query, minFrequency); err != nil {
		return nil, fmt.Errorf("failed to query tag frequencies: %w", err)
	}
	return rows, nil
}

// TagPairs returns co-occurring tag pairs shared by at least minStrength entries.
func (r *TagStatsRepository) TagPairs(ctx context.Context, minStrength int) ([]domain.TagPair, error) {
	query := r.db.Rebind(`
		SELECT t1.name AS tag_a, t2.name AS tag_b, COUNT(DISTINCT a.data_object_id) AS strength
		FROM data_object_tags a
		JOIN data_object_tags b ON a.data_object_id = b.data_object_id AND a.tag_id < b.tag_id
		JOIN tags t1 ON t1.id = a.tag_id
		JOIN tags t2 ON t2.id = b.tag_id
		GROUP BY t1.name, t2.name
		HAVING COUNT(DISTINCT a.data_object_id) >= ?`)

	rows := []domain.TagPair{}
	if err := r.db.SelectContext(ctx, &rows, query, minStrength); err != nil {
		return nil, fmt.Errorf("failed to query tag pairs: %w", err)
	}
	return rows, nil
}
