package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// sqliteSchema 本機後援資料庫的結構，開檔時建立。
// 欄位與遠端 readings 資料表對齊，JSON 欄位以 TEXT 存放。
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
	id TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL DEFAULT '',
	equipment_id TEXT NOT NULL DEFAULT '',
	quotation_no TEXT NOT NULL DEFAULT '',
	maker TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	serial_number TEXT NOT NULL DEFAULT '',
	reading_type TEXT NOT NULL DEFAULT '',
	standard_value TEXT NOT NULL DEFAULT '',
	value TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT '',
	frequency TEXT NOT NULL DEFAULT '',
	environment_temp TEXT NOT NULL DEFAULT '',
	environment_humidity TEXT NOT NULL DEFAULT '',
	std_maker TEXT NOT NULL DEFAULT '',
	std_model TEXT NOT NULL DEFAULT '',
	std_serial TEXT NOT NULL DEFAULT '',
	std_unit TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_readings_quotation ON readings(quotation_no);

CREATE TABLE IF NOT EXISTS quotation_templates (
	quotation_no TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL DEFAULT '',
	items TEXT NOT NULL DEFAULT '[]',
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS standard_instruments (
	id TEXT PRIMARY KEY,
	maker TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	serial TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	categories TEXT NOT NULL DEFAULT '[]',
	reports TEXT NOT NULL DEFAULT '[]'
);
`

// BootstrapSQLite 建立本機後援資料庫結構（冪等）
func BootstrapSQLite(db *sql.DB) error {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to bootstrap sqlite schema: %w", err)
	}
	return nil
}

// SQLiteRecordsRepository 校正紀錄的本機後援實作
type SQLiteRecordsRepository struct {
	db *sql.DB
}

func NewSQLiteRecordsRepository(db *sql.DB) *SQLiteRecordsRepository {
	return &SQLiteRecordsRepository{db: db}
}

var _ RecordsRepository = (*SQLiteRecordsRepository)(nil)

func (r *SQLiteRecordsRepository) SaveRecord(ctx context.Context, rec *domain.CalibrationRecord) error {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

func (r *SQLiteRecordsRepository) FetchByQuotation(ctx context.Context, quotationNo string) ([]*domain.CalibrationRecord, error) {
	if quotationNo == "" {
		return nil, fmt.Errorf("quotation_no is required")
	}

	query := `
		SELECT
			id, customer_name, equipment_id, quotation_no,
			maker, model, serial_number, reading_type,
			standard_value, value, unit, frequency,
			environment_temp, environment_humidity,
			std_maker, std_model, std_serial, std_unit,
			image_url, created_at
		FROM readings
		WHERE quotation_no = ?
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

// SQLiteTemplatesRepository 報價單模板的本機後援實作
type SQLiteTemplatesRepository struct {
	db *sql.DB
}

func NewSQLiteTemplatesRepository(db *sql.DB) *SQLiteTemplatesRepository {
	return &SQLiteTemplatesRepository{db: db}
}

var _ TemplatesRepository = (*SQLiteTemplatesRepository)(nil)

func (r *SQLiteTemplatesRepository) Upsert(ctx context.Context, tpl *domain.QuotationTemplate) error {
	if tpl == nil || tpl.QuotationNo == "" {
		return fmt.Errorf("quotation_no is required")
	}
	itemsJSON, err := json.Marshal(tpl.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal template items: %w", err)
	}

	query := `
		INSERT INTO quotation_templates (quotation_no, customer_name, items, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (quotation_no) DO UPDATE SET
			customer_name = excluded.customer_name,
			items = excluded.items,
			updated_at = datetime('now')
	`
	if _, err := r.db.ExecContext(ctx, query, tpl.QuotationNo, tpl.CustomerName, string(itemsJSON)); err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

func (r *SQLiteTemplatesRepository) Get(ctx context.Context, quotationNo string) (*domain.QuotationTemplate, error) {
	if quotationNo == "" {
		return nil, fmt.Errorf("quotation_no is required")
	}

	var tpl domain.QuotationTemplate
	var itemsRaw string
	err := r.db.QueryRowContext(ctx,
		`SELECT quotation_no, customer_name, items FROM quotation_templates WHERE quotation_no = ?`,
		quotationNo,
	).Scan(&tpl.QuotationNo, &tpl.CustomerName, &itemsRaw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsRaw), &tpl.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template items: %w", err)
	}
	return &tpl, nil
}

func (r *SQLiteTemplatesRepository) List(ctx context.Context) ([]*domain.QuotationTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT quotation_no, customer_name, items FROM quotation_templates ORDER BY quotation_no ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.QuotationTemplate
	for rows.Next() {
		var tpl domain.QuotationTemplate
		var itemsRaw string
		if err := rows.Scan(&tpl.QuotationNo, &tpl.CustomerName, &itemsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if err := json.Unmarshal([]byte(itemsRaw), &tpl.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template items: %w", err)
		}
		templates = append(templates, &tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return templates, nil
}

func (r *SQLiteTemplatesRepository) Delete(ctx context.Context, quotationNo string) error {
	if quotationNo == "" {
		return fmt.Errorf("quotation_no is required")
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM quotation_templates WHERE quotation_no = ?`, quotationNo); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// SQLiteStandardsRepository 標準件登錄的本機後援實作
type SQLiteStandardsRepository struct {
	db *sql.DB
}

func NewSQLiteStandardsRepository(db *sql.DB) *SQLiteStandardsRepository {
	return &SQLiteStandardsRepository{db: db}
}

var _ StandardsRepository = (*SQLiteStandardsRepository)(nil)

func (r *SQLiteStandardsRepository) Save(ctx context.Context, std *domain.StandardInstrument) error {
	if std == nil {
		return fmt.Errorf("standard is required")
	}
	if std.ID == "" {
		std.ID = uuid.NewString()
	}
	categoriesJSON, err := json.Marshal(std.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	reportsJSON, err := json.Marshal(std.Reports)
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	query := `
		INSERT INTO standard_instruments (id, maker, model, serial, image, categories, reports)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			maker = excluded.maker,
			model = excluded.model,
			serial = excluded.serial,
			image = excluded.image,
			categories = excluded.categories,
			reports = excluded.reports
	`
	if _, err := r.db.ExecContext(ctx, query,
		std.ID, std.Maker, std.Model, std.Serial, std.Image, string(categoriesJSON), string(reportsJSON),
	); err != nil {
		return fmt.Errorf("failed to save standard: %w", err)
	}
	return nil
}

func (r *SQLiteStandardsRepository) List(ctx context.Context) ([]*domain.StandardInstrument, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, maker, model, serial, image, categories, reports FROM standard_instruments ORDER BY maker ASC, model ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list standards: %w", err)
	}
	defer rows.Close()

	var standards []*domain.StandardInstrument
	for rows.Next() {
		var std domain.StandardInstrument
		var categoriesRaw, reportsRaw string
		if err := rows.Scan(&std.ID, &std.Maker, &std.Model, &std.Serial, &std.Image, &categoriesRaw, &reportsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan standard: %w", err)
		}
		if err := json.Unmarshal([]byte(categoriesRaw), &std.Categories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
		if err := json.Unmarshal([]byte(reportsRaw), &std.Reports); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reports: %w", err)
		}
		standards = append(standards, &std)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate standards: %w", err)
	}
	return standards, nil
}

func (r *SQLiteStandardsRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM standard_instruments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete standard: %w", err)
	}
	return nil
}
