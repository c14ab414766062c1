package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// PostgresStandardsRepository 標準件登錄的 Postgres 實作
type PostgresStandardsRepository struct {
	db *sql.DB
}

func NewPostgresStandardsRepository(db *sql.DB) *PostgresStandardsRepository {
	return &PostgresStandardsRepository{db: db}
}

// 確保實作了介面
var _ StandardsRepository = (*PostgresStandardsRepository)(nil)

// Save 新增或覆寫一筆標準件（以 id 為鍵）
func (r *PostgresStandardsRepository) Save(ctx context.Context, std *domain.StandardInstrument) error {
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
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			maker = EXCLUDED.maker,
			model = EXCLUDED.model,
			serial = EXCLUDED.serial,
			image = EXCLUDED.image,
			categories = EXCLUDED.categories,
			reports = EXCLUDED.reports
	`
	if _, err := r.db.ExecContext(ctx, query,
		std.ID, std.Maker, std.Model, std.Serial, std.Image, categoriesJSON, reportsJSON,
	); err != nil {
		return fmt.Errorf("failed to save standard: %w", err)
	}
	return nil
}

// List 依廠牌、型號升冪
func (r *PostgresStandardsRepository) List(ctx context.Context) ([]*domain.StandardInstrument, error) {
	query := `
		SELECT
			id::text,
			COALESCE(maker, '') as maker,
			COALESCE(model, '') as model,
			COALESCE(serial, '') as serial,
			COALESCE(image, '') as image,
			COALESCE(categories, '[]'::jsonb) as categories,
			COALESCE(reports, '[]'::jsonb) as reports
		FROM standard_instruments
		ORDER BY maker ASC, model ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list standards: %w", err)
	}
	defer rows.Close()

	var standards []*domain.StandardInstrument
	for rows.Next() {
		var std domain.StandardInstrument
		var categoriesRaw, reportsRaw json.RawMessage
		if err := rows.Scan(&std.ID, &std.Maker, &std.Model, &std.Serial, &std.Image, &categoriesRaw, &reportsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan standard: %w", err)
		}
		if err := json.Unmarshal(categoriesRaw, &std.Categories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
		if err := json.Unmarshal(reportsRaw, &std.Reports); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reports: %w", err)
		}
		standards = append(standards, &std)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate standards: %w", err)
	}
	return standards, nil
}

// Delete 刪除不存在的標準件視為成功（冪等）
func (r *PostgresStandardsRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM standard_instruments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete standard: %w", err)
	}
	return nil
}
