package repository

import (
	"context"
	"errors"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// ErrNotFound 查無資料（模板、標準件）。呼叫端據此判斷「不存在」
// 而非後端故障。
var ErrNotFound = errors.New("repository: not found")

// RecordsRepository 校正紀錄持久層。提交管線只依賴 SaveRecord，
// 歷史查詢依賴 FetchByQuotation。
type RecordsRepository interface {
	// SaveRecord 寫入一筆攤平紀錄（一筆對應一張照片）
	SaveRecord(ctx context.Context, rec *domain.CalibrationRecord) error
	// FetchByQuotation 依報價單號查詢，created_at 升冪
	FetchByQuotation(ctx context.Context, quotationNo string) ([]*domain.CalibrationRecord, error)
}

// TemplatesRepository 報價單模板持久層（事前作業）
type TemplatesRepository interface {
	// Upsert 以 quotation_no 為鍵新增或覆寫
	Upsert(ctx context.Context, tpl *domain.QuotationTemplate) error
	// Get 查無時回傳 ErrNotFound
	Get(ctx context.Context, quotationNo string) (*domain.QuotationTemplate, error)
	List(ctx context.Context) ([]*domain.QuotationTemplate, error)
	Delete(ctx context.Context, quotationNo string) error
}

// StandardsRepository 標準件登錄持久層
type StandardsRepository interface {
	Save(ctx context.Context, std *domain.StandardInstrument) error
	List(ctx context.Context) ([]*domain.StandardInstrument, error)
	Delete(ctx context.Context, id string) error
}

// Repositories 三個持久層的組合，啟動時由 main 依可用性選擇實作
// （postgres → sqlite → memory）。
type Repositories struct {
	Records   RecordsRepository
	Templates TemplatesRepository
	Standards StandardsRepository
}
