package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	readings "mobility-cloud/internal/readings/domain"
)

func TestInsertReturnsAssignedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	distance := 45.2
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO leituras").
		WithArgs(distance, nil, nil, true, at, "1.2.3.4").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	repo := NewReadingRepository(db)
	id, err := repo.Insert(context.Background(), readings.Reading{
		DistanceCM: &distance,
		Alert:      true,
		At:         at,
		Origin:     "1.2.3.4",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertWrapsPersistenceError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	distance := 45.2
	mock.ExpectQuery("INSERT INTO leituras").
		WillReturnError(errors.New("connection refused"))

	repo := NewReadingRepository(db)
	_, err = repo.Insert(context.Background(), readings.Reading{
		DistanceCM: &distance,
		At:         time.Now().UTC(),
		Origin:     "1.2.3.4",
	})
	if !errors.Is(err, readings.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
}

func TestInsertRejectsMissingOrigin(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewReadingRepository(db)
	_, err = repo.Insert(context.Background(), readings.Reading{At: time.Now().UTC()})
	if !errors.Is(err, readings.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
