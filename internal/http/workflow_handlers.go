package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/domain"
	"github.com/d90432206-droid/caliocr/internal/notify"
	"github.com/d90432206-droid/caliocr/internal/repository"
	"github.com/d90432206-droid/caliocr/internal/service"
	"github.com/d90432206-droid/caliocr/internal/session"
	"github.com/d90432206-droid/caliocr/internal/workflow"
)

// WorkflowHandler 擷取流程的全部操作員事件端點，一事件一端點。
type WorkflowHandler struct {
	ctrl      *workflow.Controller
	store     *session.Store
	submitter *service.Submitter
	templates repository.TemplatesRepository
	notifier  *notify.Notifier
	logger    *zap.Logger
}

func NewWorkflowHandler(
	ctrl *workflow.Controller,
	store *session.Store,
	submitter *service.Submitter,
	templates repository.TemplatesRepository,
	notifier *notify.Notifier,
	logger *zap.Logger,
) *WorkflowHandler {
	return &WorkflowHandler{
		ctrl:      ctrl,
		store:     store,
		submitter: submitter,
		templates: templates,
		notifier:  notifier,
		logger:    logger,
	}
}

type stepResult struct {
	Step  workflow.Step  `json:"step"`
	Focus workflow.Focus `json:"focus"`
}

func (h *WorkflowHandler) stepResult() stepResult {
	return stepResult{Step: h.ctrl.Step(), Focus: h.ctrl.Focus()}
}

// GetSession 目前工作樹快照與流程狀態
func (h *WorkflowHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{
		"session": h.store.Snapshot(),
		"step":    h.ctrl.Step(),
		"focus":   h.ctrl.Focus(),
		"syncing": h.ctrl.Syncing(),
	})
}

type quotationRequest struct {
	CustomerName string `json:"customer_name" validate:"required"`
	QuotationNo  string `json:"quotation_no" validate:"required"`
	Temperature  string `json:"temperature"`
	Humidity     string `json:"humidity"`
}

// CompleteQuotation 報價單輸入完成。有同號模板時套用骨架再前進。
func (h *WorkflowHandler) CompleteQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.store.SetQuotationMeta(r.Context(), req.CustomerName, req.QuotationNo, req.Temperature, req.Humidity); err != nil {
		// 鏡射失敗非關鍵路徑，記錄後照常前進
		h.logger.Warn("session mirror save failed", zap.Error(err))
	}

	templateApplied := false
	if h.templates != nil {
		tpl, err := h.templates.Get(r.Context(), req.QuotationNo)
		switch {
		case err == nil:
			h.store.ApplyTemplate(tpl)
			// 模板覆寫客戶名後補回操作員輸入的環境值已由 ApplyTemplate 保證
			templateApplied = true
		case errors.Is(err, repository.ErrNotFound):
			// 無模板照常手動建立
		default:
			h.logger.Warn("template lookup failed", zap.String("quotation_no", req.QuotationNo), zap.Error(err))
		}
	}

	step := h.ctrl.CompleteQuotation()
	writeOK(w, map[string]any{
		"step":             step,
		"template_applied": templateApplied,
		"session":          h.store.Snapshot(),
	})
}

type standardRequest struct {
	Maker      string                     `json:"maker" validate:"required"`
	Model      string                     `json:"model"`
	Serial     string                     `json:"serial"`
	Image      string                     `json:"image"`
	Categories []string                   `json:"categories"`
	Reports    []domain.CalibrationReport `json:"reports"`
}

// AddStandard 標準件擷取完成（迴圈回到設定頁）
func (h *WorkflowHandler) AddStandard(w http.ResponseWriter, r *http.Request) {
	var req standardRequest
	if !decodeValid(w, r, &req) {
		return
	}
	std, step := h.ctrl.CompleteStandardCapture(session.StandardData{
		Maker:      req.Maker,
		Model:      req.Model,
		Serial:     req.Serial,
		Image:      req.Image,
		Categories: req.Categories,
		Reports:    req.Reports,
	})
	writeOK(w, map[string]any{"standard": std, "step": step})
}

// RemoveStandard 刪除標準件（冪等）
func (h *WorkflowHandler) RemoveStandard(w http.ResponseWriter, r *http.Request, id string) {
	h.store.RemoveStandard(id)
	writeOK(w, h.stepResult())
}

type identityRequest struct {
	Maker        string `json:"maker"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Image        string `json:"image"`
	EquipmentID  string `json:"equipment_id"`
}

// CompleteIdentity 銘牌擷取完成（相機與手動共用）→ 建立設備並聚焦
func (h *WorkflowHandler) CompleteIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decodeValid(w, r, &req) {
		return
	}
	item, step := h.ctrl.CompleteIdentity(session.IdentityData{
		Maker:        req.Maker,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		Image:        req.Image,
		EquipmentID:  req.EquipmentID,
	})
	writeOK(w, map[string]any{"item": item, "step": step})
}

type selectRequest struct {
	ID string `json:"id" validate:"required"`
}

// SelectItem 從設備清單聚焦一台設備
func (h *WorkflowHandler) SelectItem(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.ctrl.SelectItem(req.ID)
	writeOK(w, h.stepResult())
}

// EditIdentity 套用銘牌部分更新並回到儀表板
func (h *WorkflowHandler) EditIdentity(w http.ResponseWriter, r *http.Request) {
	var patch domain.IdentityPatch
	if !decodeValid(w, r, &patch) {
		return
	}
	step := h.ctrl.SaveIdentity(patch)
	writeOK(w, map[string]any{"step": step, "focus": h.ctrl.Focus()})
}

type categoryRequest struct {
	Kind        domain.Kind `json:"type" validate:"required"`
	MaxReadings int         `json:"max_readings"`
}

// SelectCategory 選擇量別 → 建立並聚焦 → 點位清單
func (h *WorkflowHandler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if !req.Kind.Valid() {
		writeFail(w, http.StatusBadRequest, "unknown measurement type: "+string(req.Kind))
		return
	}
	mt, step := h.ctrl.SelectCategory(req.Kind, req.MaxReadings)
	if mt == nil {
		writeFail(w, http.StatusConflict, "no focused equipment item")
		return
	}
	writeOK(w, map[string]any{"measurement_type": mt, "step": step})
}

// SelectType 聚焦既有量別
func (h *WorkflowHandler) SelectType(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.ctrl.SelectType(req.ID)
	writeOK(w, h.stepResult())
}

type pointRequest struct {
	TargetValue string `json:"target_value" validate:"required"`
	Unit        string `json:"unit" validate:"required"`
	Frequency   string `json:"frequency"`
}

// AddPoint 新增校正點位（停留在點位清單）
func (h *WorkflowHandler) AddPoint(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !decodeValid(w, r, &req) {
		return
	}
	p := h.ctrl.AddPoint(req.TargetValue, req.Unit, req.Frequency)
	if p == nil {
		writeFail(w, http.StatusConflict, "no focused measurement type")
		return
	}
	writeOK(w, map[string]any{"point": p})
}

// SelectPoint 聚焦點位 → 讀數擷取
func (h *WorkflowHandler) SelectPoint(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.ctrl.SelectPoint(req.ID)
	writeOK(w, h.stepResult())
}

// GetCaptureContext 擷取畫面狀態（模式、單位、鎖定快取、進度）
func (h *WorkflowHandler) GetCaptureContext(w http.ResponseWriter, r *http.Request) {
	ctx := h.ctrl.CaptureContext()
	if ctx == nil {
		writeFail(w, http.StatusConflict, "no point in capture focus")
		return
	}
	writeOK(w, ctx)
}

type captureRequest struct {
	Kind          string                      `json:"kind" validate:"required,oneof=standard dut"`
	StandardValue string                      `json:"standard_value"`
	DUTValue      string                      `json:"dut_value" validate:"required"`
	Unit          string                      `json:"unit" validate:"required"`
	Timestamp     string                      `json:"timestamp"`
	DUTImage      string                      `json:"dut_image"`
	StandardImage string                      `json:"standard_image"`
	Standard      *domain.StandardAttribution `json:"standard"`
}

// CaptureReading 提交一次讀數擷取
func (h *WorkflowHandler) CaptureReading(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decodeValid(w, r, &req) {
		return
	}
	res, step := h.ctrl.CaptureReading(session.ReadingCapture{
		Kind:          session.CaptureKind(req.Kind),
		StandardValue: req.StandardValue,
		DUTValue:      req.DUTValue,
		Unit:          req.Unit,
		Timestamp:     req.Timestamp,
		DUTImage:      req.DUTImage,
		StandardImage: req.StandardImage,
		Standard:      req.Standard,
	})
	if !res.Recorded {
		writeFail(w, http.StatusConflict, "reading rejected")
		return
	}
	writeOK(w, map[string]any{
		"recorded":          res.Recorded,
		"threshold_reached": res.ThresholdReached,
		"step":              step,
	})
}

type unlockRequest struct {
	TargetValue string `json:"target_value" validate:"required"`
}

// UnlockStandard 逐出鎖定快取，強制重新拍攝
func (h *WorkflowHandler) UnlockStandard(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if !decodeValid(w, r, &req) {
		return
	}
	h.ctrl.UnlockStandard(req.TargetValue)
	writeOK(w, h.stepResult())
}

// Submit 提交全部紀錄。syncing 旗標擋重複提交；
// 任一筆失敗回報單一彙總錯誤，已寫入的不回滾。
func (h *WorkflowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.ctrl.TryBeginSync() {
		writeFail(w, http.StatusConflict, "submission already in progress")
		return
	}
	defer h.ctrl.EndSync()

	sess := h.store.Snapshot()
	n, err := h.submitter.SubmitAll(r.Context(), sess)
	if err != nil {
		writeFail(w, http.StatusBadGateway, "提交失敗")
		return
	}
	step := h.ctrl.SubmitSucceeded()

	if h.notifier != nil && h.notifier.Enabled() {
		if err := h.notifier.SubmitComplete(notify.SubmitNotice{
			QuotationNo: sess.QuotationNo,
			Records:     n,
			Items:       len(sess.Items),
		}); err != nil {
			h.logger.Warn("submit notice failed", zap.Error(err))
		}
	}
	writeOK(w, map[string]any{"records": n, "step": step})
}

// GetStep 目前流程狀態
func (h *WorkflowHandler) GetStep(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{
		"step":    h.ctrl.Step(),
		"focus":   h.ctrl.Focus(),
		"syncing": h.ctrl.Syncing(),
	})
}

// Back 退回上一層
func (h *WorkflowHandler) Back(w http.ResponseWriter, r *http.Request) {
	step, err := h.ctrl.Back(r.Context())
	if err != nil {
		h.logger.Warn("session clear on back failed", zap.Error(err))
	}
	writeOK(w, map[string]any{"step": step, "focus": h.ctrl.Focus()})
}

type navigateRequest struct {
	Event string `json:"event" validate:"required,oneof=standard_capture equipment_list identity_capture identity_manual type_list edit_identity presetup history"`
}

// Navigate 無資料負載的純導覽事件
func (h *WorkflowHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	var step workflow.Step
	switch req.Event {
	case "standard_capture":
		step = h.ctrl.OpenStandardCapture()
	case "equipment_list":
		step = h.ctrl.ProceedToEquipment()
	case "identity_capture":
		step = h.ctrl.StartIdentityCapture()
	case "identity_manual":
		step = h.ctrl.SwitchToManualIdentity()
	case "type_list":
		step = h.ctrl.OpenTypeList()
	case "edit_identity":
		step = h.ctrl.OpenEditIdentity()
	case "presetup":
		step = h.ctrl.OpenPreSetup()
	case "history":
		step = h.ctrl.OpenHistory()
	}
	writeOK(w, map[string]any{"step": step, "focus": h.ctrl.Focus()})
}

// Clear 明確重設：清空工作樹、鎖定快取與鏡射欄位
func (h *WorkflowHandler) Clear(w http.ResponseWriter, r *http.Request) {
	step, err := h.ctrl.Reset(r.Context())
	if err != nil {
		h.logger.Warn("session clear failed", zap.Error(err))
	}
	writeOK(w, map[string]any{"step": step})
}
