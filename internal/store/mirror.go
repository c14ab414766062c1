package store

import (
	"context"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// 鏡射鍵：四個會話純量欄位各佔一鍵，與前端逐欄寫入的行為一致
const (
	keyCustomerName = "caliocr:session:customer_name"
	keyQuotationNo  = "caliocr:session:quotation_no"
	keyTemperature  = "caliocr:session:temperature"
	keyHumidity     = "caliocr:session:humidity"
)

// SessionMirror 以 KV 實作會話純量鏡射。不設 TTL：
// 鏡射的生命週期由明確的 Clear 管理。
type SessionMirror struct {
	kv KV
}

func NewSessionMirror(kv KV) *SessionMirror {
	return &SessionMirror{kv: kv}
}

// Save 寫入四個欄位；任一失敗即回報（鏡射非關鍵路徑，呼叫端僅記錄）
func (m *SessionMirror) Save(ctx context.Context, sc domain.SessionScalars) error {
	pairs := map[string]string{
		keyCustomerName: sc.CustomerName,
		keyQuotationNo:  sc.QuotationNo,
		keyTemperature:  sc.Temperature,
		keyHumidity:     sc.Humidity,
	}
	for key, val := range pairs {
		if err := m.kv.Set(ctx, key, val, 0); err != nil {
			return err
		}
	}
	return nil
}

// Load 還原鏡射欄位；缺鍵視為空值，不算錯誤。
func (m *SessionMirror) Load(ctx context.Context) (domain.SessionScalars, error) {
	var sc domain.SessionScalars
	for key, dst := range map[string]*string{
		keyCustomerName: &sc.CustomerName,
		keyQuotationNo:  &sc.QuotationNo,
		keyTemperature:  &sc.Temperature,
		keyHumidity:     &sc.Humidity,
	} {
		val, err := m.kv.Get(ctx, key)
		if err != nil {
			if err == ErrMiss {
				continue
			}
			return domain.SessionScalars{}, err
		}
		*dst = val
	}
	return sc, nil
}

// Clear 會話重設時移除全部鏡射鍵
func (m *SessionMirror) Clear(ctx context.Context) error {
	return m.kv.Del(ctx, keyCustomerName, keyQuotationNo, keyTemperature, keyHumidity)
}
