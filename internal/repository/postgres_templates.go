package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// PostgresTemplatesRepository 報價單模板的 Postgres 實作。
// Items 以 JSONB 整包存放，模板骨架不需要關聯查詢。
type PostgresTemplatesRepository struct {
	db *sql.DB
}

func NewPostgresTemplatesRepository(db *sql.DB) *PostgresTemplatesRepository {
	return &PostgresTemplatesRepository{db: db}
}

// 確保實作了介面
var _ TemplatesRepository = (*PostgresTemplatesRepository)(nil)

// Upsert 以 quotation_no 為鍵新增或覆寫
func (r *PostgresTemplatesRepository) Upsert(ctx context.Context, tpl *domain.QuotationTemplate) error {
	if tpl == nil || tpl.QuotationNo == "" {
		return fmt.Errorf("quotation_no is required")
	}
	itemsJSON, err := json.Marshal(tpl.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal template items: %w", err)
	}

	query := `
		INSERT INTO quotation_templates (quotation_no, customer_name, items, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (quotation_no) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			items = EXCLUDED.items,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, tpl.QuotationNo, tpl.CustomerName, itemsJSON); err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

// Get 查無時回傳 ErrNotFound
func (r *PostgresTemplatesRepository) Get(ctx context.Context, quotationNo string) (*domain.QuotationTemplate, error) {
	if quotationNo == "" {
		return nil, fmt.Errorf("quotation_no is required")
	}

	query := `
		SELECT quotation_no, COALESCE(customer_name, '') as customer_name, COALESCE(items, '[]'::jsonb) as items
		FROM quotation_templates
		WHERE quotation_no = $1
	`
	var tpl domain.QuotationTemplate
	var itemsRaw json.RawMessage
	err := r.db.QueryRowContext(ctx, query, quotationNo).Scan(&tpl.QuotationNo, &tpl.CustomerName, &itemsRaw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if err := json.Unmarshal(itemsRaw, &tpl.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template items: %w", err)
	}
	return &tpl, nil
}

// List 依報價單號升冪
func (r *PostgresTemplatesRepository) List(ctx context.Context) ([]*domain.QuotationTemplate, error) {
	query := `
		SELECT quotation_no, COALESCE(customer_name, '') as customer_name, COALESCE(items, '[]'::jsonb) as items
		FROM quotation_templates
		ORDER BY quotation_no ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.QuotationTemplate
	for rows.Next() {
		var tpl domain.QuotationTemplate
		var itemsRaw json.RawMessage
		if err := rows.Scan(&tpl.QuotationNo, &tpl.CustomerName, &itemsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if err := json.Unmarshal(itemsRaw, &tpl.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template items: %w", err)
		}
		templates = append(templates, &tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return templates, nil
}

// Delete 刪除不存在的模板視為成功（冪等）
func (r *PostgresTemplatesRepository) Delete(ctx context.Context, quotationNo string) error {
	if quotationNo == "" {
		return fmt.Errorf("quotation_no is required")
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM quotation_templates WHERE quotation_no = $1`, quotationNo); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}
