package history

import (
	"time"

	"github.com/jwtly10/gh-relay/internal/db"
)

// Entry is one relayed invocation. Request bodies and header values are
// never recorded, they routinely carry OAuth tokens.
type Entry struct {
	ID             int64     `json:"id"`
	InvocationID   string    `json:"invocation_id"`
	Transport      string    `json:"transport"`
	Method         string    `json:"method"`
	URL            string    `json:"url"`
	Outcome        string    `json:"outcome"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
	Error          string    `json:"error,omitempty"`
	Duration       int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type Repository struct {
	db *db.Database
}

func NewHistoryRepository(db *db.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Record(e *Entry) (*Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(`
        INSERT INTO relay_history (invocation_id, transport, method, url, outcome, upstream_status, error, duration_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, e.InvocationID, e.Transport, e.Method, e.URL, e.Outcome, e.UpstreamStatus, e.Error, e.Duration, e.CreatedAt)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	e.ID = id

	return e, nil
}

// Recent returns up to limit entries, newest first. Out of range limits are clamped.
func (r *Repository) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := r.db.Query(`
        SELECT id, invocation_id, transport, method, url, outcome, upstream_status, error, duration_ms, created_at
        FROM relay_history
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.ID, &e.InvocationID, &e.Transport, &e.Method, &e.URL, &e.Outcome, &e.UpstreamStatus, &e.Error, &e.Duration, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
