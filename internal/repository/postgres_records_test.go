package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

func TestPostgresSaveRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRecordsRepository(db)

	mock.ExpectExec("INSERT INTO readings").
		WithArgs(
			"rec-1", "台積電", "EQ-1741944413000", "Q-2025-001",
			"Fluke", "87V", "SN-001", "temperature",
			"100", "99.8", "℃", "",
			"23.5", "55",
			"Fluke", "5522A", "STD-9", "℃",
			"http://img/1.jpg", "2025-03-14T09:27:00Z",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SaveRecord(context.Background(), &domain.CalibrationRecord{
		ID:            "rec-1",
		CustomerName:  "台積電",
		EquipmentID:   "EQ-1741944413000",
		QuotationNo:   "Q-2025-001",
		Maker:         "Fluke",
		Model:         "87V",
		SerialNumber:  "SN-001",
		ReadingType:   "temperature",
		StandardValue: "100",
		Value:         "99.8",
		Unit:          "℃",
		EnvTemp:       "23.5",
		EnvHumidity:   "55",
		StdMaker:      "Fluke",
		StdModel:      "5522A",
		StdSerial:     "STD-9",
		StdUnit:       "℃",
		ImageURL:      "http://img/1.jpg",
		CreatedAt:     "2025-03-14T09:27:00Z",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveRecordNil(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRecordsRepository(db)
	assert.Error(t, repo.SaveRecord(context.Background(), nil))
}

func TestPostgresFetchByQuotation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRecordsRepository(db)

	cols := []string{
		"id", "customer_name", "equipment_id", "quotation_no",
		"maker", "model", "serial_number", "reading_type",
		"standard_value", "value", "unit", "frequency",
		"environment_temp", "environment_humidity",
		"std_maker", "std_model", "std_serial", "std_unit",
		"image_url", "created_at",
	}
	rows := sqlmock.NewRows(cols).
		AddRow("rec-1", "台積電", "EQ-1", "Q-1", "Fluke", "87V", "SN-001",
			domain.ReadingTypeIdentity, "", "", "", "", "", "", "", "", "", "",
			"http://img/id.jpg", "2025-03-14T09:26:00Z").
		AddRow("rec-2", "台積電", "EQ-1", "Q-1", "Fluke", "87V", "SN-001",
			"temperature", "100", "99.8", "℃", "", "23.5", "55",
			"Fluke", "5522A", "STD-9", "℃", "http://img/r1.jpg", "2025-03-14T09:27:00Z")

	mock.ExpectQuery("SELECT(.|\n)+FROM readings").
		WithArgs("Q-1").
		WillReturnRows(rows)

	records, err := repo.FetchByQuotation(context.Background(), "Q-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.ReadingTypeIdentity, records[0].ReadingType)
	assert.Equal(t, "99.8", records[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFetchByQuotationEmptyArg(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRecordsRepository(db)
	_, err = repo.FetchByQuotation(context.Background(), "")
	assert.Error(t, err)
}
