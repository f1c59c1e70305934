package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	readings "mobility-cloud/internal/readings/domain"
)

func TestQueryByOriginAndDayWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start, end := readings.DayWindow(day)

	rows := sqlmock.NewRows([]string{"id", "distancia_cm", "temperatura", "umidade", "alerta", "data_hora"}).
		AddRow(int64(1), 45.2, nil, nil, true, day.Add(10*time.Hour)).
		AddRow(int64(2), 50.0, nil, nil, false, day.Add(11*time.Hour))

	mock.ExpectQuery("SELECT id, distancia_cm, temperatura, umidade, alerta, data_hora").
		WithArgs("1.2.3.4", start, end).
		WillReturnRows(rows)

	query := NewReadingQuery(db)
	result, err := query.QueryByOriginAndDay(context.Background(), "1.2.3.4", day)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("got %d readings, want 2", len(result))
	}
	if result[0].DistanceCM == nil || *result[0].DistanceCM != 45.2 {
		t.Fatalf("first reading distance = %v, want 45.2", result[0].DistanceCM)
	}
	if result[0].Origin != "1.2.3.4" {
		t.Fatalf("origin = %q, want 1.2.3.4", result[0].Origin)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountAlertsByHourDensifies(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start, end := readings.DayWindow(day)

	rows := sqlmock.NewRows([]string{"hora", "total"}).
		AddRow(3, 2).
		AddRow(23, 5)

	mock.ExpectQuery("EXTRACT\\(HOUR FROM data_hora\\)").
		WithArgs("1.2.3.4", start, end).
		WillReturnRows(rows)

	query := NewReadingQuery(db)
	histogram, err := query.CountAlertsByHour(context.Background(), "1.2.3.4", day)
	if err != nil {
		t.Fatalf("count alerts: %v", err)
	}

	total := 0
	for hour, count := range histogram {
		total += count
		switch hour {
		case 3:
			if count != 2 {
				t.Fatalf("hour 3 = %d, want 2", count)
			}
		case 23:
			if count != 5 {
				t.Fatalf("hour 23 = %d, want 5", count)
			}
		default:
			if count != 0 {
				t.Fatalf("hour %d = %d, want 0", hour, count)
			}
		}
	}
	if total != 7 {
		t.Fatalf("histogram sum = %d, want 7", total)
	}
}

func TestDistinctDaysDescending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"dia"}).
		AddRow(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)).
		AddRow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery("SELECT DISTINCT date_trunc").
		WithArgs("1.2.3.4").
		WillReturnRows(rows)

	query := NewReadingQuery(db)
	days, err := query.DistinctDays(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("distinct days: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	if !days[0].After(days[1]) {
		t.Fatalf("days not descending: %v", days)
	}
}

func TestLatestByOriginEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("ORDER BY id DESC").
		WithArgs("1.2.3.4").
		WillReturnRows(sqlmock.NewRows([]string{"id", "distancia_cm", "temperatura", "umidade", "alerta", "data_hora"}))

	query := NewReadingQuery(db)
	latest, err := query.LatestByOrigin(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("latest = %+v, want nil", latest)
	}
}
