package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/tablesearch/internal/application/search"
	"github.com/example/tablesearch/internal/db"
	"github.com/example/tablesearch/internal/domain/reservation"
)

// Entry is one remembered search.
type Entry struct {
	ID        string
	SearchID  string
	Criteria  reservation.Criteria
	Total     int
	Loaded    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repo struct {
	db    *db.DB
	newID func() uuid.UUID
}

func NewRepo(d *db.DB) *Repo { return &Repo{db: d, newID: uuid.New} }

// Record upserts the search keyed by its search id, so later pages only bump the counters.
func (r *Repo) Record(ctx context.Context, c reservation.Criteria, st search.State) error {
	if st.SearchID == "" {
		return nil
	}
	err := r.db.Exec(ctx, `
INSERT INTO search_history(id,search_id,party_size,search_date,search_time,total,loaded)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (search_id) DO UPDATE
SET total=EXCLUDED.total, loaded=EXCLUDED.loaded, updated_at=now()`,
		r.newID().String(), st.SearchID, c.Size, c.Date, c.Time, st.TotalResults, len(st.Results),
	)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

func (r *Repo) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
SELECT id::text,search_id,party_size,search_date,search_time,total,loaded,created_at,updated_at
FROM search_history
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.SearchID, &e.Criteria.Size, &e.Criteria.Date, &e.Criteria.Time,
			&e.Total, &e.Loaded, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, searchID string) (Entry, error) {
	var e Entry
	err := r.db.QueryRow(ctx, `
SELECT id::text,search_id,party_size,search_date,search_time,total,loaded,created_at,updated_at
FROM search_history
WHERE search_id=$1`, searchID).Scan(
		&e.ID, &e.SearchID, &e.Criteria.Size, &e.Criteria.Date, &e.Criteria.Time,
		&e.Total, &e.Loaded, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, db.WrapNotFound(err)
}

// Prune drops entries created before the cutoff.
func (r *Repo) Prune(ctx context.Context, before time.Time) error {
	return r.db.Exec(ctx, `DELETE FROM search_history WHERE created_at < $1`, before)
}
