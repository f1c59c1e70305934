package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	readings "mobility-cloud/internal/readings/domain"
)

const defaultReadingsTable = "leituras"

// ReadingRepository is the Postgres append-only store for readings.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ReadingRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewReadingRepository constructs a repository with the default table name.
func NewReadingRepository(db *sql.DB, opts ...RepositoryOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Insert appends a reading and returns the storage-assigned id. Ids are
// strictly increasing in insertion order via the table's identity sequence;
// no application-level locking is involved.
func (r *ReadingRepository) Insert(ctx context.Context, reading readings.Reading) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("reading repo: nil db")
	}
	if reading.Origin == "" || reading.At.IsZero() {
		return 0, fmt.Errorf("%w: missing origin or timestamp", readings.ErrValidation)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (distancia_cm, temperatura, umidade, alerta, data_hora, ip_origem)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`, r.table)

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		query,
		nullFloat(reading.DistanceCM),
		nullFloat(reading.Temperature),
		nullFloat(reading.Humidity),
		reading.Alert,
		reading.At,
		reading.Origin,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", readings.ErrPersistence, err)
	}
	return id, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
