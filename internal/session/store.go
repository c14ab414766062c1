package session

import (
	"context"
	"sync"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// Mirror 會話四個純量欄位的本機鏡射（寫入於每次變更、重啟時還原、
// Clear 時一併清除）。
type Mirror interface {
	Save(ctx context.Context, sc domain.SessionScalars) error
	Load(ctx context.Context) (domain.SessionScalars, error)
	Clear(ctx context.Context) error
}

// StandardData 標準件建立輸入（識別擷取流程提供）
type StandardData struct {
	Maker      string
	Model      string
	Serial     string
	Image      string
	Categories []string
	Reports    []domain.CalibrationReport
}

// IdentityData 設備銘牌擷取輸入（相機或手動路徑一致）
type IdentityData struct {
	Maker        string
	Model        string
	SerialNumber string
	Image        string
	EquipmentID  string // 留空則配發 EQ-<millis> 預設案號
}

// CaptureKind 讀數擷取的兩種變體：合法轉換由此標記列舉，
// 不從 nil 判斷推論。
type CaptureKind string

const (
	// CaptureStandard 首次擷取：同時提交標準讀數（seq 0）與第一筆待校件讀數（seq 1）
	CaptureStandard CaptureKind = "standard"
	// CaptureDUT 追加下一筆待校件讀數
	CaptureDUT CaptureKind = "dut"
)

// ReadingCapture 一次擷取提交的全部資料
type ReadingCapture struct {
	Kind          CaptureKind
	StandardValue string
	DUTValue      string
	Unit          string
	Timestamp     string
	DUTImage      string
	StandardImage string
	Standard      *domain.StandardAttribution // 僅 CaptureStandard 使用；DUT 追加時覆寫沿用值
}

// RecordResult RecordReading 的結果旗標
type RecordResult struct {
	Recorded         bool // 路徑解析失敗或違反順序/上限時為 false（不變更任何狀態）
	ThresholdReached bool // 此筆使點位達到 MaxReadings，呼叫端應返回點位清單
}

// Store 工作樹的唯一事實來源。所有變更都是路徑複寫：
// 只重建 root→目標 的路徑，兄弟子樹以指標共享，
// 讓上游能以指標相等做廉價變更偵測。
type Store struct {
	mu      sync.RWMutex
	alloc   *Allocator
	mirror  Mirror
	session *domain.Session
	cache   *standardCache
}

// NewStore 建立工作階段；mirror 可為 nil（無本機 KV 時）。
// 四個純量欄位自鏡射還原。
func NewStore(ctx context.Context, alloc *Allocator, mirror Mirror) *Store {
	s := &Store{
		alloc:   alloc,
		mirror:  mirror,
		session: emptySession(),
		cache:   newStandardCache(),
	}
	if mirror != nil {
		if sc, err := mirror.Load(ctx); err == nil {
			next := *s.session
			next.CustomerName = sc.CustomerName
			next.QuotationNo = sc.QuotationNo
			next.Temperature = sc.Temperature
			next.Humidity = sc.Humidity
			s.session = &next
		}
	}
	return s
}

func emptySession() *domain.Session {
	return &domain.Session{
		Standards: []*domain.StandardInstrument{},
		Items:     []*domain.EquipmentItem{},
	}
}

// Snapshot returns the current root. Callers treat it as read-only; every
// mutation swaps in a new root, so a held snapshot stays consistent.
func (s *Store) Snapshot() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetQuotationMeta 純欄位替換，不做驗證（空字串允許；必填檢查在表單層）。
// 回傳值僅反映鏡射寫入的結果。
func (s *Store) SetQuotationMeta(ctx context.Context, customer, quotationNo, temperature, humidity string) error {
	s.mu.Lock()
	next := *s.session
	next.CustomerName = customer
	next.QuotationNo = quotationNo
	next.Temperature = temperature
	next.Humidity = humidity
	s.session = &next
	sc := next.Scalars()
	s.mu.Unlock()

	if s.mirror == nil {
		return nil
	}
	return s.mirror.Save(ctx, sc)
}

// ApplyTemplate 以模板覆寫客戶/單號並植入設備骨架；
// 環境溫濕度保留操作員現場輸入值。
func (s *Store) ApplyTemplate(t *domain.QuotationTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]*domain.EquipmentItem, 0, len(t.Items))
	for _, ti := range t.Items {
		item := &domain.EquipmentItem{
			ID:          orAlloc(ti.ID, s.alloc),
			EquipmentID: ti.EquipmentID,
			Identity: domain.Identity{
				Maker:        ti.Maker,
				Model:        ti.Model,
				SerialNumber: ti.SerialNumber,
			},
			Types: make([]*domain.MeasurementType, 0, len(ti.Types)),
		}
		if item.EquipmentID == "" {
			item.EquipmentID = s.alloc.EquipmentID()
		}
		for _, tt := range ti.Types {
			mt := &domain.MeasurementType{
				ID:          orAlloc(tt.ID, s.alloc),
				Kind:        tt.Kind,
				MaxReadings: tt.MaxReadings,
				Points:      make([]*domain.CalibrationPoint, 0, len(tt.Points)),
			}
			if mt.MaxReadings <= 0 {
				mt.MaxReadings = tt.Kind.DefaultMaxReadings()
			}
			for _, tp := range tt.Points {
				mt.Points = append(mt.Points, &domain.CalibrationPoint{
					ID:          orAlloc(tp.ID, s.alloc),
					TargetValue: tp.TargetValue,
					Unit:        tp.Unit,
					Frequency:   tp.Frequency,
					Readings:    []*domain.Reading{},
				})
			}
			item.Types = append(item.Types, mt)
		}
		items = append(items, item)
	}

	next := *s.session
	next.CustomerName = t.CustomerName
	next.QuotationNo = t.QuotationNo
	next.Items = items
	s.session = &next
}

func orAlloc(id string, alloc *Allocator) string {
	if id != "" {
		return id
	}
	return alloc.NewID()
}

// AddStandard appends a new standard instrument and returns it.
func (s *Store) AddStandard(data StandardData) *domain.StandardInstrument {
	s.mu.Lock()
	defer s.mu.Unlock()

	std := &domain.StandardInstrument{
		ID:         s.alloc.NewID(),
		Maker:      data.Maker,
		Model:      data.Model,
		Serial:     data.Serial,
		Image:      data.Image,
		Categories: data.Categories,
		Reports:    data.Reports,
	}
	next := *s.session
	next.Standards = append(append([]*domain.StandardInstrument{}, s.session.Standards...), std)
	s.session = &next
	return std
}

// RemoveStandard deletes by id; absent ids are a no-op (idempotent).
func (s *Store) RemoveStandard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stds := s.session.Standards
	kept := make([]*domain.StandardInstrument, 0, len(stds))
	found := false
	for _, std := range stds {
		if std.ID == id {
			found = true
			continue
		}
		kept = append(kept, std)
	}
	if !found {
		return
	}
	next := *s.session
	next.Standards = kept
	s.session = &next
}

// AddItem creates a DUT item from identity data, deriving the case number
// when the operator supplied none, and returns the new item.
func (s *Store) AddItem(data IdentityData) *domain.EquipmentItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	equipmentID := data.EquipmentID
	if equipmentID == "" {
		equipmentID = s.alloc.EquipmentID()
	}
	item := &domain.EquipmentItem{
		ID:          s.alloc.NewID(),
		EquipmentID: equipmentID,
		Identity: domain.Identity{
			Maker:        data.Maker,
			Model:        data.Model,
			SerialNumber: data.SerialNumber,
			Image:        data.Image,
		},
		Types: []*domain.MeasurementType{},
	}
	next := *s.session
	next.Items = append(append([]*domain.EquipmentItem{}, s.session.Items...), item)
	s.session = &next
	return item
}

// AddMeasurementType appends a category to the item; nil when the item id
// does not resolve (silent no-op per the capture flow contract).
func (s *Store) AddMeasurementType(itemID string, kind domain.Kind, maxReadings int) *domain.MeasurementType {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxReadings <= 0 {
		maxReadings = kind.DefaultMaxReadings()
	}
	mt := &domain.MeasurementType{
		ID:          s.alloc.NewID(),
		Kind:        kind,
		MaxReadings: maxReadings,
		Points:      []*domain.CalibrationPoint{},
	}
	ok := s.rewriteItem(itemID, func(item *domain.EquipmentItem) *domain.EquipmentItem {
		ni := *item
		ni.Types = append(append([]*domain.MeasurementType{}, item.Types...), mt)
		return &ni
	})
	if !ok {
		return nil
	}
	return mt
}

// AddPoint appends a calibration point under item/type; nil when the path
// does not resolve.
func (s *Store) AddPoint(itemID, typeID, targetValue, unit, frequency string) *domain.CalibrationPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	point := &domain.CalibrationPoint{
		ID:          s.alloc.NewID(),
		TargetValue: targetValue,
		Unit:        unit,
		Frequency:   frequency,
		Readings:    []*domain.Reading{},
	}
	ok := s.rewriteType(itemID, typeID, func(mt *domain.MeasurementType) *domain.MeasurementType {
		nt := *mt
		nt.Points = append(append([]*domain.CalibrationPoint{}, mt.Points...), point)
		return &nt
	})
	if !ok {
		return nil
	}
	return point
}

// RecordReading 核心寫入。CaptureStandard 一次提交標準讀數（seq 0）與
// 第一筆待校件讀數（seq 1）；CaptureDUT 追加下一筆並沿用標準件識別。
// 路徑解析失敗、順序違規或超出上限皆為無副作用的拒絕。
func (s *Store) RecordReading(itemID, typeID, pointID string, cap ReadingCapture) RecordResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result RecordResult
	s.rewritePoint(itemID, typeID, pointID, func(mt *domain.MeasurementType, p *domain.CalibrationPoint) *domain.CalibrationPoint {
		switch cap.Kind {
		case CaptureStandard:
			if p.Standard != nil {
				return nil
			}
		case CaptureDUT:
			if p.Standard == nil {
				return nil
			}
		default:
			return nil
		}
		if len(p.Readings) >= mt.MaxReadings {
			return nil
		}

		np := *p
		attribution := p.Attribution()
		if cap.Kind == CaptureStandard {
			if cap.Standard != nil {
				attribution = *cap.Standard
			}
			np.Standard = &domain.Reading{
				ID:        s.alloc.NewID(),
				Image:     cap.StandardImage,
				Value:     cap.StandardValue,
				Unit:      cap.Unit,
				Timestamp: cap.Timestamp,
				Seq:       0,
				Maker:     attribution.Maker,
				Model:     attribution.Model,
				Serial:    attribution.Serial,
			}
		} else if cap.Standard != nil {
			attribution = *cap.Standard
		}

		reading := &domain.Reading{
			ID:        s.alloc.NewID(),
			Image:     cap.DUTImage,
			Value:     cap.DUTValue,
			Unit:      cap.Unit,
			Timestamp: cap.Timestamp,
			Seq:       len(p.Readings) + 1,
			Maker:     attribution.Maker,
			Model:     attribution.Model,
			Serial:    attribution.Serial,
		}
		np.Readings = append(append([]*domain.Reading{}, p.Readings...), reading)

		result.Recorded = true
		result.ThresholdReached = len(np.Readings) >= mt.MaxReadings
		return &np
	})
	return result
}

// EditIdentity shallow-merges the patch; false when the item is gone.
func (s *Store) EditIdentity(itemID string, patch domain.IdentityPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rewriteItem(itemID, func(item *domain.EquipmentItem) *domain.EquipmentItem {
		ni := *item
		ni.Identity = patch.Apply(item.Identity)
		return &ni
	})
}

// LockStandard 寫入標準值鎖定快取（首次標準擷取提交時）。
func (s *Store) LockStandard(kind domain.Kind, targetValue string, snap StandardSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.lock(CacheKey{Kind: kind, TargetValue: targetValue}, snap)
}

// UnlockStandard 明確解鎖（逐出快取，強制重新拍攝）。
func (s *Store) UnlockStandard(kind domain.Kind, targetValue string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.unlock(CacheKey{Kind: kind, TargetValue: targetValue})
}

// LockedStandard 查詢快取；僅在點位尚無自己的標準讀數時由呼叫端使用。
func (s *Store) LockedStandard(kind domain.Kind, targetValue string) (StandardSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.lookup(CacheKey{Kind: kind, TargetValue: targetValue})
}

// Clear 重設整個工作階段並清除鏡射欄位。
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.session = emptySession()
	s.cache.reset()
	s.mu.Unlock()

	if s.mirror == nil {
		return nil
	}
	return s.mirror.Clear(ctx)
}

// Item resolves an equipment item by id.
func (s *Store) Item(id string) *domain.EquipmentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findItem(s.session, id)
}

// MeasurementType resolves item/type by id path.
func (s *Store) MeasurementType(itemID, typeID string) *domain.MeasurementType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findType(findItem(s.session, itemID), typeID)
}

// Point resolves item/type/point by id path.
func (s *Store) Point(itemID, typeID, pointID string) *domain.CalibrationPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findPoint(findType(findItem(s.session, itemID), typeID), pointID)
}

func findItem(sess *domain.Session, id string) *domain.EquipmentItem {
	if id == "" {
		return nil
	}
	for _, item := range sess.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func findType(item *domain.EquipmentItem, id string) *domain.MeasurementType {
	if item == nil || id == "" {
		return nil
	}
	for _, mt := range item.Types {
		if mt.ID == id {
			return mt
		}
	}
	return nil
}

func findPoint(mt *domain.MeasurementType, id string) *domain.CalibrationPoint {
	if mt == nil || id == "" {
		return nil
	}
	for _, p := range mt.Points {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// rewriteItem 複寫 root→item 路徑；fn 回傳 nil 表示放棄（不發佈新根）。
func (s *Store) rewriteItem(itemID string, fn func(*domain.EquipmentItem) *domain.EquipmentItem) bool {
	items := s.session.Items
	for i, item := range items {
		if item.ID != itemID {
			continue
		}
		ni := fn(item)
		if ni == nil {
			return false
		}
		newItems := make([]*domain.EquipmentItem, len(items))
		copy(newItems, items)
		newItems[i] = ni
		next := *s.session
		next.Items = newItems
		s.session = &next
		return true
	}
	return false
}

func (s *Store) rewriteType(itemID, typeID string, fn func(*domain.MeasurementType) *domain.MeasurementType) bool {
	return s.rewriteItem(itemID, func(item *domain.EquipmentItem) *domain.EquipmentItem {
		for i, mt := range item.Types {
			if mt.ID != typeID {
				continue
			}
			nt := fn(mt)
			if nt == nil {
				return nil
			}
			newTypes := make([]*domain.MeasurementType, len(item.Types))
			copy(newTypes, item.Types)
			newTypes[i] = nt
			ni := *item
			ni.Types = newTypes
			return &ni
		}
		return nil
	})
}

func (s *Store) rewritePoint(itemID, typeID, pointID string, fn func(*domain.MeasurementType, *domain.CalibrationPoint) *domain.CalibrationPoint) bool {
	return s.rewriteType(itemID, typeID, func(mt *domain.MeasurementType) *domain.MeasurementType {
		for i, p := range mt.Points {
			if p.ID != pointID {
				continue
			}
			np := fn(mt, p)
			if np == nil {
				return nil
			}
			newPoints := make([]*domain.CalibrationPoint, len(mt.Points))
			copy(newPoints, mt.Points)
			newPoints[i] = np
			nt := *mt
			nt.Points = newPoints
			return &nt
		}
		return nil
	})
}
