package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/domain"
	"github.com/d90432206-droid/caliocr/internal/session"
)

// Step 操作流程的狀態。轉換只由明確的操作員事件觸發，
// 沒有計時器或背景轉換。
type Step string

const (
	StepQuotationEntry  Step = "QUOTATION_ENTRY"
	StepStandardSetup   Step = "STANDARD_SETUP"
	StepStandardCapture Step = "STANDARD_CAPTURE"
	StepEquipmentList   Step = "EQUIPMENT_LIST"
	StepIdentityCapture Step = "IDENTITY_CAPTURE"
	StepIdentityManual  Step = "IDENTITY_MANUAL"
	StepItemDashboard   Step = "ITEM_DASHBOARD"
	StepTypeList        Step = "TYPE_LIST"
	StepPointList       Step = "POINT_LIST"
	StepReadingCapture  Step = "READING_CAPTURE"
	StepEditIdentity    Step = "EDIT_IDENTITY"
	StepSuccess         Step = "SUCCESS"
	StepHistoryView     Step = "HISTORY_VIEW"
	StepPreSetup        Step = "PRE_SETUP"
)

// CaptureMode 讀數擷取畫面的子模式
type CaptureMode string

const (
	ModeStandard CaptureMode = "standard" // 點位尚無標準讀數
	ModeDUT      CaptureMode = "dut"      // 追加待校件讀數
)

// Focus 目前聚焦的實體 id（空字串表示無）
type Focus struct {
	ItemID  string `json:"item_id,omitempty"`
	TypeID  string `json:"type_id,omitempty"`
	PointID string `json:"point_id,omitempty"`
}

// CaptureContext 讀數擷取畫面所需的全部狀態，由目前焦點組裝。
type CaptureContext struct {
	Mode               CaptureMode                  `json:"mode"`
	Kind               domain.Kind                  `json:"kind"`
	TargetValue        string                       `json:"target_value"`
	CurrentIndex       int                          `json:"current_index"` // 待校件模式：下一筆的序號
	TotalReadings      int                          `json:"total_readings"`
	ExpectedUnit       string                       `json:"expected_unit,omitempty"` // 空值表示不檢查單位
	UnitOptions        []string                     `json:"unit_options"`
	Locked             *session.StandardSnapshot    `json:"locked_standard,omitempty"`
	ActiveStandard     *domain.StandardAttribution  `json:"active_standard,omitempty"`
	AvailableStandards []*domain.StandardInstrument `json:"available_standards"`
}

// Controller 單焦點的流程狀態機。所有事件方法先驗證焦點可解析，
// 失焦時清除焦點並退回最近的有效清單，不帶著過期 id 繼續。
type Controller struct {
	mu      sync.Mutex
	store   *session.Store
	logger  *zap.Logger
	step    Step
	focus   Focus
	syncing bool
}

func NewController(store *session.Store, logger *zap.Logger) *Controller {
	return &Controller{
		store:  store,
		logger: logger,
		step:   StepQuotationEntry,
	}
}

// Step returns the current step after re-validating focus. A step whose
// focal entity no longer resolves falls back to its parent list.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.normalize()
	return c.step
}

// Focus returns the current focal ids (post-validation).
func (c *Controller) Focus() Focus {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.normalize()
	return c.focus
}

// normalize 失焦防護：需要焦點的步驟在 id 解析失敗時
// 清除焦點並退回上層清單。呼叫端需持鎖。
func (c *Controller) normalize() {
	switch c.step {
	case StepItemDashboard, StepTypeList, StepEditIdentity:
		if c.store.Item(c.focus.ItemID) == nil {
			c.dropFocus(StepEquipmentList)
		}
	case StepPointList:
		if c.store.Item(c.focus.ItemID) == nil {
			c.dropFocus(StepEquipmentList)
		} else if c.store.MeasurementType(c.focus.ItemID, c.focus.TypeID) == nil {
			c.focus.TypeID, c.focus.PointID = "", ""
			c.step = StepItemDashboard
		}
	case StepReadingCapture:
		if c.store.Item(c.focus.ItemID) == nil {
			c.dropFocus(StepEquipmentList)
		} else if c.store.MeasurementType(c.focus.ItemID, c.focus.TypeID) == nil {
			c.focus.TypeID, c.focus.PointID = "", ""
			c.step = StepItemDashboard
		} else if c.store.Point(c.focus.ItemID, c.focus.TypeID, c.focus.PointID) == nil {
			c.focus.PointID = ""
			c.step = StepPointList
		}
	}
}

func (c *Controller) dropFocus(fallback Step) {
	if c.logger != nil {
		c.logger.Warn("stale focus cleared",
			zap.String("step", string(c.step)),
			zap.String("item_id", c.focus.ItemID))
	}
	c.focus = Focus{}
	c.step = fallback
}

// CompleteQuotation moves from quotation entry to standard setup.
func (c *Controller) CompleteQuotation() Step {
	return c.transition(StepStandardSetup)
}

// OpenStandardCapture enters the standard-instrument capture loop.
func (c *Controller) OpenStandardCapture() Step {
	return c.transition(StepStandardCapture)
}

// CompleteStandardCapture 建立標準件後回到設定頁（迴圈，非線性前進）。
func (c *Controller) CompleteStandardCapture(data session.StandardData) (*domain.StandardInstrument, Step) {
	std := c.store.AddStandard(data)
	return std, c.transition(StepStandardSetup)
}

// ProceedToEquipment leaves standard setup for the equipment list.
func (c *Controller) ProceedToEquipment() Step {
	return c.transition(StepEquipmentList)
}

// StartIdentityCapture opens the camera identity flow.
func (c *Controller) StartIdentityCapture() Step {
	return c.transition(StepIdentityCapture)
}

// SwitchToManualIdentity falls back to the manual nameplate form.
func (c *Controller) SwitchToManualIdentity() Step {
	return c.transition(StepIdentityManual)
}

// CompleteIdentity 建立設備並聚焦，相機與手動路徑走同一條。
func (c *Controller) CompleteIdentity(data session.IdentityData) (*domain.EquipmentItem, Step) {
	item := c.store.AddItem(data)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focus = Focus{ItemID: item.ID}
	c.step = StepItemDashboard
	return item, c.step
}

// SelectItem focuses an existing item; unknown ids stay on the list.
func (c *Controller) SelectItem(itemID string) Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.Item(itemID) == nil {
		c.step = StepEquipmentList
		return c.step
	}
	c.focus = Focus{ItemID: itemID}
	c.step = StepItemDashboard
	return c.step
}

// OpenTypeList shows the category picker for the focused item.
func (c *Controller) OpenTypeList() Step {
	return c.transition(StepTypeList)
}

// SelectCategory 建立量別並聚焦 → 點位清單。
func (c *Controller) SelectCategory(kind domain.Kind, maxReadings int) (*domain.MeasurementType, Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := c.store.AddMeasurementType(c.focus.ItemID, kind, maxReadings)
	if mt == nil {
		c.dropFocus(StepEquipmentList)
		return nil, c.step
	}
	c.focus.TypeID = mt.ID
	c.focus.PointID = ""
	c.step = StepPointList
	return mt, c.step
}

// SelectType focuses an existing measurement type of the focused item.
func (c *Controller) SelectType(typeID string) Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.MeasurementType(c.focus.ItemID, typeID) == nil {
		c.normalize()
		return c.step
	}
	c.focus.TypeID = typeID
	c.focus.PointID = ""
	c.step = StepPointList
	return c.step
}

// AddPoint appends a point under the focused type; the step stays on the
// point list (the add dialog is a sub-view, not a step).
func (c *Controller) AddPoint(targetValue, unit, frequency string) *domain.CalibrationPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.AddPoint(c.focus.ItemID, c.focus.TypeID, targetValue, unit, frequency)
}

// SelectPoint focuses a point and enters reading capture.
func (c *Controller) SelectPoint(pointID string) Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.Point(c.focus.ItemID, c.focus.TypeID, pointID) == nil {
		c.normalize()
		return c.step
	}
	c.focus.PointID = pointID
	c.step = StepReadingCapture
	return c.step
}

// CaptureContext 組裝擷取畫面狀態；焦點失效時回傳 nil 並退回清單。
func (c *Controller) CaptureContext() *CaptureContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.normalize()
	if c.step != StepReadingCapture {
		return nil
	}
	mt := c.store.MeasurementType(c.focus.ItemID, c.focus.TypeID)
	p := c.store.Point(c.focus.ItemID, c.focus.TypeID, c.focus.PointID)
	sess := c.store.Snapshot()

	ctx := &CaptureContext{
		Kind:               mt.Kind,
		TargetValue:        p.TargetValue,
		TotalReadings:      mt.MaxReadings,
		UnitOptions:        mt.Kind.UnitOptions(),
		AvailableStandards: sess.Standards,
	}
	if p.Standard == nil {
		ctx.Mode = ModeStandard
		// 溫度量別的標準擷取允許單位不一致（電阻標準校溫度點）
		if !mt.Kind.AllowsStandardUnitMismatch() {
			ctx.ExpectedUnit = p.Unit
		}
		if snap, ok := c.store.LockedStandard(mt.Kind, p.TargetValue); ok {
			ctx.Locked = &snap
		}
	} else {
		ctx.Mode = ModeDUT
		ctx.ExpectedUnit = p.Unit
		ctx.CurrentIndex = len(p.Readings) + 1
		attr := p.Attribution()
		ctx.ActiveStandard = &attr
	}
	return ctx
}

// CaptureReading 提交一次擷取。新鮮的標準擷取寫入鎖定快取；
// 點位達到讀數上限時退回點位清單，否則留在擷取畫面。
func (c *Controller) CaptureReading(cap session.ReadingCapture) (session.RecordResult, Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.normalize()
	if c.step != StepReadingCapture {
		return session.RecordResult{}, c.step
	}
	mt := c.store.MeasurementType(c.focus.ItemID, c.focus.TypeID)
	p := c.store.Point(c.focus.ItemID, c.focus.TypeID, c.focus.PointID)
	freshStandard := cap.Kind == session.CaptureStandard && p.Standard == nil

	res := c.store.RecordReading(c.focus.ItemID, c.focus.TypeID, c.focus.PointID, cap)
	if res.Recorded && freshStandard {
		c.store.LockStandard(mt.Kind, p.TargetValue, session.StandardSnapshot{
			Value:  cap.StandardValue,
			Unit:   cap.Unit,
			Image:  cap.StandardImage,
			Maker:  attrField(cap.Standard, func(a domain.StandardAttribution) string { return a.Maker }),
			Model:  attrField(cap.Standard, func(a domain.StandardAttribution) string { return a.Model }),
			Serial: attrField(cap.Standard, func(a domain.StandardAttribution) string { return a.Serial }),
		})
	}
	if res.Recorded && res.ThresholdReached {
		c.focus.PointID = ""
		c.step = StepPointList
	}
	return res, c.step
}

func attrField(a *domain.StandardAttribution, f func(domain.StandardAttribution) string) string {
	if a == nil {
		return ""
	}
	return f(*a)
}

// UnlockStandard 逐出焦點量別下指定目標值的鎖定快取。
func (c *Controller) UnlockStandard(targetValue string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := c.store.MeasurementType(c.focus.ItemID, c.focus.TypeID)
	if mt == nil {
		return
	}
	c.store.UnlockStandard(mt.Kind, targetValue)
}

// OpenEditIdentity enters the identity edit form for the focused item.
func (c *Controller) OpenEditIdentity() Step {
	return c.transition(StepEditIdentity)
}

// SaveIdentity applies the patch and returns to the dashboard.
func (c *Controller) SaveIdentity(patch domain.IdentityPatch) Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.store.EditIdentity(c.focus.ItemID, patch) {
		c.dropFocus(StepEquipmentList)
		return c.step
	}
	c.step = StepItemDashboard
	return c.step
}

// OpenPreSetup / OpenHistory 全域入口，任何步驟皆可達。
func (c *Controller) OpenPreSetup() Step { return c.transition(StepPreSetup) }
func (c *Controller) OpenHistory() Step  { return c.transition(StepHistoryView) }

// TryBeginSync 提交去重閘：已有提交在途時回傳 false。
func (c *Controller) TryBeginSync() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncing {
		return false
	}
	c.syncing = true
	return true
}

// EndSync releases the gate (deferred by the submit handler).
func (c *Controller) EndSync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncing = false
}

// Syncing reports whether a submission is in flight.
func (c *Controller) Syncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncing
}

// SubmitSucceeded 提交全數成功 → 成功畫面。工作階段不自動清除，
// 開始新校正單是獨立的操作員動作。
func (c *Controller) SubmitSucceeded() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focus = Focus{}
	c.step = StepSuccess
	return c.step
}

// Reset 清空工作階段並回到報價單輸入；自成功畫面與歷史返回可達。
func (c *Controller) Reset(ctx context.Context) (Step, error) {
	c.mu.Lock()
	c.focus = Focus{}
	c.step = StepQuotationEntry
	c.mu.Unlock()
	return StepQuotationEntry, c.store.Clear(ctx)
}

// Back 退回上一層：點位清單 → 設備儀表板 → 設備清單 → 報價單輸入，
// 不跳層。歷史檢視的返回等同重設。
func (c *Controller) Back(ctx context.Context) (Step, error) {
	c.mu.Lock()
	c.normalize()
	step := c.step
	c.mu.Unlock()

	switch step {
	case StepHistoryView:
		return c.Reset(ctx)
	case StepStandardSetup:
		return c.transition(StepQuotationEntry), nil
	case StepStandardCapture:
		return c.transition(StepStandardSetup), nil
	case StepEquipmentList:
		return c.transition(StepStandardSetup), nil
	case StepIdentityCapture:
		return c.transition(StepEquipmentList), nil
	case StepIdentityManual:
		return c.transition(StepIdentityCapture), nil
	case StepItemDashboard:
		c.mu.Lock()
		c.focus = Focus{}
		c.step = StepEquipmentList
		c.mu.Unlock()
		return StepEquipmentList, nil
	case StepTypeList, StepEditIdentity:
		return c.transition(StepItemDashboard), nil
	case StepPointList:
		c.mu.Lock()
		c.focus.TypeID, c.focus.PointID = "", ""
		c.step = StepItemDashboard
		c.mu.Unlock()
		return StepItemDashboard, nil
	case StepReadingCapture:
		c.mu.Lock()
		c.focus.PointID = ""
		c.step = StepPointList
		c.mu.Unlock()
		return StepPointList, nil
	case StepPreSetup:
		return c.transition(StepQuotationEntry), nil
	}
	return step, nil
}

func (c *Controller) transition(next Step) Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = next
	return next
}
