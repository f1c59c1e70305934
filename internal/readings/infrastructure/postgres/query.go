package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	readings "mobility-cloud/internal/readings/domain"
)

// ReadingQuery is the Postgres read side of the store. Every query filters
// by origin; a reading from a different origin is never returned.
type ReadingQuery struct {
	db    *sql.DB
	table string
}

// QueryOption configures the reading query.
type QueryOption func(*ReadingQuery)

// WithQueryTable overrides the default table name for queries.
func WithQueryTable(table string) QueryOption {
	return func(query *ReadingQuery) {
		if query != nil && table != "" {
			query.table = table
		}
	}
}

// NewReadingQuery constructs a query with the default table name.
func NewReadingQuery(db *sql.DB, opts ...QueryOption) *ReadingQuery {
	query := &ReadingQuery{db: db, table: defaultReadingsTable}
	for _, opt := range opts {
		opt(query)
	}
	return query
}

// QueryByOriginAndDay returns the origin's readings within the civil day,
// ascending by timestamp.
func (q *ReadingQuery) QueryByOriginAndDay(ctx context.Context, origin string, day time.Time) ([]readings.Reading, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reading query: nil db")
	}
	if origin == "" || day.IsZero() {
		return nil, errors.New("reading query: invalid arguments")
	}
	start, end := readings.DayWindow(day)

	query := fmt.Sprintf(`
SELECT id, distancia_cm, temperatura, umidade, alerta, data_hora
FROM %s
WHERE ip_origem = $1
	AND data_hora >= $2
	AND data_hora < $3
ORDER BY data_hora ASC`, q.table)

	rows, err := q.db.QueryContext(ctx, query, origin, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.Reading
	for rows.Next() {
		reading, err := scanReading(rows, origin)
		if err != nil {
			return nil, err
		}
		result = append(result, reading)
	}
	return result, rows.Err()
}

// DistinctDays returns the civil days with at least one reading for the
// origin, newest first.
func (q *ReadingQuery) DistinctDays(ctx context.Context, origin string) ([]time.Time, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reading query: nil db")
	}
	if origin == "" {
		return nil, errors.New("reading query: empty origin")
	}

	query := fmt.Sprintf(`
SELECT DISTINCT date_trunc('day', data_hora) AS dia
FROM %s
WHERE ip_origem = $1
ORDER BY dia DESC`, q.table)

	rows, err := q.db.QueryContext(ctx, query, origin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// CountAlertsByHour returns the alert count per hour of the civil day. The
// result always carries all 24 buckets; hours without alerts stay zero.
func (q *ReadingQuery) CountAlertsByHour(ctx context.Context, origin string, day time.Time) ([24]int, error) {
	var histogram [24]int
	if q == nil || q.db == nil {
		return histogram, errors.New("reading query: nil db")
	}
	if origin == "" || day.IsZero() {
		return histogram, errors.New("reading query: invalid arguments")
	}
	start, end := readings.DayWindow(day)

	query := fmt.Sprintf(`
SELECT EXTRACT(HOUR FROM data_hora)::int AS hora, COUNT(*) AS total
FROM %s
WHERE ip_origem = $1
	AND alerta
	AND data_hora >= $2
	AND data_hora < $3
GROUP BY hora`, q.table)

	rows, err := q.db.QueryContext(ctx, query, origin, start, end)
	if err != nil {
		return histogram, err
	}
	defer rows.Close()

	for rows.Next() {
		var hour, total int
		if err := rows.Scan(&hour, &total); err != nil {
			return histogram, err
		}
		if hour >= 0 && hour < 24 {
			histogram[hour] = total
		}
	}
	return histogram, rows.Err()
}

// LatestByOrigin returns the origin's newest reading, or nil when the
// origin has no readings yet.
func (q *ReadingQuery) LatestByOrigin(ctx context.Context, origin string) (*readings.Reading, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reading query: nil db")
	}
	if origin == "" {
		return nil, errors.New("reading query: empty origin")
	}

	query := fmt.Sprintf(`
SELECT id, distancia_cm, temperatura, umidade, alerta, data_hora
FROM %s
WHERE ip_origem = $1
ORDER BY id DESC
LIMIT 1`, q.table)

	row := q.db.QueryRowContext(ctx, query, origin)
	reading, err := scanReading(row, origin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner, origin string) (readings.Reading, error) {
	var (
		reading           readings.Reading
		distance, temp, h sql.NullFloat64
	)
	if err := row.Scan(&reading.ID, &distance, &temp, &h, &reading.Alert, &reading.At); err != nil {
		return readings.Reading{}, err
	}
	reading.Origin = origin
	if distance.Valid {
		v := distance.Float64
		reading.DistanceCM = &v
	}
	if temp.Valid {
		v := temp.Float64
		reading.Temperature = &v
	}
	if h.Valid {
		v := h.Float64
		reading.Humidity = &v
	}
	return reading, nil
}
