package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// PostgresRecordsRepository 校正紀錄的 Postgres 實作
type PostgresRecordsRepository struct {
	db *sql.DB
}

func NewPostgresRecordsRepository(db *sql.DB) *PostgresRecordsRepository {
	return &PostgresRecordsRepository{db: db}
}

// 確保實作了介面
var _ RecordsRepository = (*PostgresRecordsRepository)(nil)

// SaveRecord 寫入一筆攤平紀錄
func (r *PostgresRecordsRepository) SaveRecord(ctx context.Context, rec *domain.CalibrationRecord) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO readings (
			id, customer_name, equipment_id, quotation_no,
			maker, model, serial_number, reading_type,
			standard_value, value, unit, frequency,
			environment_temp, environment_humidity,
			std_maker, std_model, std_serial, std_unit,
			image_url, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		id, rec.CustomerName, rec.EquipmentID, rec.QuotationNo,
		rec.Maker, rec.Model, rec.SerialNumber, rec.ReadingType,
		rec.StandardValue, rec.Value, rec.Unit, rec.Frequency,
		rec.EnvTemp, rec.EnvHumidity,
		rec.StdMaker, rec.StdModel, rec.StdSerial, rec.StdUnit,
		rec.ImageURL, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// FetchByQuotation 依報價單號查詢，created_at 升冪
func (r *PostgresRecordsRepository) FetchByQuotation(ctx context.Context, quotationNo string) ([]*domain.CalibrationRecord, error) {
	if quotationNo == "" {
		return nil, fmt.Errorf("quotation_no is required")
	}

	query := `
		SELECT
			id::text,
			COALESCE(customer_name, '') as customer_name,
			COALESCE(equipment_id, '') as equipment_id,
			COALESCE(quotation_no, '') as quotation_no,
			COALESCE(maker, '') as maker,
			COALESCE(model, '') as model,
			COALESCE(serial_number, '') as serial_number,
			COALESCE(reading_type, '') as reading_type,
			COALESCE(standard_value, '') as standard_value,
			COALESCE(value, '') as value,
			COALESCE(unit, '') as unit,
			COALESCE(frequency, '') as frequency,
			COALESCE(environment_temp, '') as environment_temp,
			COALESCE(environment_humidity, '') as environment_humidity,
			COALESCE(std_maker, '') as std_maker,
			COALESCE(std_model, '') as std_model,
			COALESCE(std_serial, '') as std_serial,
			COALESCE(std_unit, '') as std_unit,
			COALESCE(image_url, '') as image_url,
			COALESCE(created_at, '') as created_at
		FROM readings
		WHERE quotation_no = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, quotationNo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer rows.Close()

	var records []*domain.CalibrationRecord
	for rows.Next() {
		var rec domain.CalibrationRecord
		if err := rows.Scan(
			&rec.ID, &rec.CustomerName, &rec.EquipmentID, &rec.QuotationNo,
			&rec.Maker, &rec.Model, &rec.SerialNumber, &rec.ReadingType,
			&rec.StandardValue, &rec.Value, &rec.Unit, &rec.Frequency,
			&rec.EnvTemp, &rec.EnvHumidity,
			&rec.StdMaker, &rec.StdModel, &rec.StdSerial, &rec.StdUnit,
			&rec.ImageURL, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}
