package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// MemoryRecordsRepository 校正紀錄的記憶體實作（最後後援與測試用）
type MemoryRecordsRepository struct {
	mu      sync.RWMutex
	records []*domain.CalibrationRecord
}

func NewMemoryRecordsRepository() *MemoryRecordsRepository {
	return &MemoryRecordsRepository{}
}

var _ RecordsRepository = (*MemoryRecordsRepository)(nil)

func (r *MemoryRecordsRepository) SaveRecord(_ context.Context, rec *domain.CalibrationRecord) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *rec
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	r.records = append(r.records, &stored)
	return nil
}

func (r *MemoryRecordsRepository) FetchByQuotation(_ context.Context, quotationNo string) ([]*domain.CalibrationRecord, error) {
	if quotationNo == "" {
		return nil, fmt.Errorf("quotation_no is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.CalibrationRecord
	for _, rec := range r.records {
		if rec.QuotationNo == quotationNo {
			cp := *rec
			out = append(out, &cp)
		}
	}
	// 插入順序即 created_at 順序
	return out, nil
}

// MemoryTemplatesRepository 報價單模板的記憶體實作
type MemoryTemplatesRepository struct {
	mu        sync.RWMutex
	templates map[string]*domain.QuotationTemplate
}

func NewMemoryTemplatesRepository() *MemoryTemplatesRepository {
	return &MemoryTemplatesRepository{templates: map[string]*domain.QuotationTemplate{}}
}

var _ TemplatesRepository = (*MemoryTemplatesRepository)(nil)

func (r *MemoryTemplatesRepository) Upsert(_ context.Context, tpl *domain.QuotationTemplate) error {
	if tpl == nil || tpl.QuotationNo == "" {
		return fmt.Errorf("quotation_no is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tpl
	r.templates[tpl.QuotationNo] = &cp
	return nil
}

func (r *MemoryTemplatesRepository) Get(_ context.Context, quotationNo string) (*domain.QuotationTemplate, error) {
	if quotationNo == "" {
		return nil, fmt.Errorf("quotation_no is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[quotationNo]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tpl
	return &cp, nil
}

func (r *MemoryTemplatesRepository) List(_ context.Context) ([]*domain.QuotationTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.QuotationTemplate, 0, len(r.templates))
	for _, tpl := range r.templates {
		cp := *tpl
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuotationNo < out[j].QuotationNo })
	return out, nil
}

func (r *MemoryTemplatesRepository) Delete(_ context.Context, quotationNo string) error {
	if quotationNo == "" {
		return fmt.Errorf("quotation_no is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.templates, quotationNo)
	return nil
}

// MemoryStandardsRepository 標準件登錄的記憶體實作
type MemoryStandardsRepository struct {
	mu        sync.RWMutex
	standards map[string]*domain.StandardInstrument
}

func NewMemoryStandardsRepository() *MemoryStandardsRepository {
	return &MemoryStandardsRepository{standards: map[string]*domain.StandardInstrument{}}
}

var _ StandardsRepository = (*MemoryStandardsRepository)(nil)

func (r *MemoryStandardsRepository) Save(_ context.Context, std *domain.StandardInstrument) error {
	if std == nil {
		return fmt.Errorf("standard is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if std.ID == "" {
		std.ID = uuid.NewString()
	}
	cp := *std
	r.standards[std.ID] = &cp
	return nil
}

func (r *MemoryStandardsRepository) List(_ context.Context) ([]*domain.StandardInstrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.StandardInstrument, 0, len(r.standards))
	for _, std := range r.standards {
		cp := *std
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Maker != out[j].Maker {
			return out[i].Maker < out[j].Maker
		}
		return out[i].Model < out[j].Model
	})
	return out, nil
}

func (r *MemoryStandardsRepository) Delete(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.standards, id)
	return nil
}
