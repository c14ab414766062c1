package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/domain"
	"github.com/d90432206-droid/caliocr/internal/repository"
	"github.com/d90432206-droid/caliocr/internal/service"
	"github.com/d90432206-droid/caliocr/internal/session"
	"github.com/d90432206-droid/caliocr/internal/workflow"
)

type testEnv struct {
	router    *Router
	store     *session.Store
	ctrl      *workflow.Controller
	records   *repository.MemoryRecordsRepository
	templates *repository.MemoryTemplatesRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	store := session.NewStore(context.Background(), session.NewAllocator(), nil)
	ctrl := workflow.NewController(store, logger)
	records := repository.NewMemoryRecordsRepository()
	templates := repository.NewMemoryTemplatesRepository()
	standards := repository.NewMemoryStandardsRepository()

	submitter := service.NewSubmitter(records, logger)
	wf := NewWorkflowHandler(ctrl, store, submitter, templates, nil, logger)
	history := NewHistoryHandler(records, logger)
	presetup := NewPreSetupHandler(templates, standards, logger)

	router := NewRouter(logger)
	router.RegisterWorkflowRoutes(wf)
	router.RegisterHistoryRoutes(history)
	router.RegisterPreSetupRoutes(presetup)

	return &testEnv{router: router, store: store, ctrl: ctrl, records: records, templates: templates}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Code   int             `json:"code"`
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, ResultSuccess, envelope.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(envelope.Result, &out))
	return out
}

func TestQuotationValidation(t *testing.T) {
	e := newTestEnv(t)
	// 缺 customer_name 一律 400 且不變更狀態
	w := e.do(t, http.MethodPost, "/calib/api/v1/session/quotation", map[string]any{"quotation_no": "Q-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, e.store.Snapshot().QuotationNo)
}

func TestQuotationCompleteWithTemplate(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.templates.Upsert(context.Background(), &domain.QuotationTemplate{
		QuotationNo:  "Q-1",
		CustomerName: "台積電",
		Items: []domain.TemplateItem{{
			EquipmentID: "CASE-1", Maker: "Fluke", Model: "87V",
			Types: []domain.TemplateType{{Kind: domain.KindTemperature}},
		}},
	}))

	w := e.do(t, http.MethodPost, "/calib/api/v1/session/quotation", map[string]any{
		"customer_name": "手動輸入",
		"quotation_no":  "Q-1",
		"temperature":   "23.5",
		"humidity":      "55",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	assert.Equal(t, true, res["template_applied"])
	assert.Equal(t, string(workflow.StepStandardSetup), res["step"])

	sess := e.store.Snapshot()
	assert.Equal(t, "台積電", sess.CustomerName, "template customer name wins")
	assert.Equal(t, "23.5", sess.Temperature, "operator environment survives template")
	require.Len(t, sess.Items, 1)
	assert.Equal(t, "CASE-1", sess.Items[0].EquipmentID)
}

func TestFullCaptureFlowOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/calib/api/v1/session/quotation", map[string]any{
		"customer_name": "台積電", "quotation_no": "Q-9",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// 標準件
	w = e.do(t, http.MethodPost, "/calib/api/v1/standards", map[string]any{
		"maker": "Fluke", "model": "5522A", "serial": "STD-9",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// 設備
	w = e.do(t, http.MethodPost, "/calib/api/v1/items", map[string]any{
		"maker": "Fluke", "model": "87V", "serial_number": "SN-1", "image": "nameplate.jpg",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// 量別（電氣類單拍）
	w = e.do(t, http.MethodPost, "/calib/api/v1/types", map[string]any{"type": "dc_voltage"})
	require.Equal(t, http.StatusOK, w.Code)

	// 點位
	w = e.do(t, http.MethodPost, "/calib/api/v1/points", map[string]any{
		"target_value": "10", "unit": "V",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	pointID := res["point"].(map[string]any)["id"].(string)

	w = e.do(t, http.MethodPost, "/calib/api/v1/points/select", map[string]any{"id": pointID})
	require.Equal(t, http.StatusOK, w.Code)

	// 擷取畫面狀態：標準模式
	w = e.do(t, http.MethodGet, "/calib/api/v1/capture/context", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ctx := decodeResult(t, w)
	assert.Equal(t, "standard", ctx["mode"])
	assert.Equal(t, "V", ctx["expected_unit"])

	// 讀數擷取：單拍即滿 → 回點位清單
	w = e.do(t, http.MethodPost, "/calib/api/v1/capture/reading", map[string]any{
		"kind": "standard", "standard_value": "10.001", "dut_value": "10.003",
		"unit": "V", "timestamp": "2025-03-14T09:27:00Z",
		"standard": map[string]any{"maker": "Fluke", "model": "5522A", "serial": "STD-9"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	res = decodeResult(t, w)
	assert.Equal(t, true, res["threshold_reached"])
	assert.Equal(t, string(workflow.StepPointList), res["step"])

	// 重複的標準擷取被拒
	w = e.do(t, http.MethodPost, "/calib/api/v1/points/select", map[string]any{"id": pointID})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPost, "/calib/api/v1/capture/reading", map[string]any{
		"kind": "standard", "standard_value": "10.0", "dut_value": "10.0", "unit": "V",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 提交：銘牌 + 標準 + 讀數 = 3 筆
	w = e.do(t, http.MethodPost, "/calib/api/v1/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decodeResult(t, w)
	assert.Equal(t, float64(3), res["records"])
	assert.Equal(t, string(workflow.StepSuccess), res["step"])

	// 成功不清除工作階段
	assert.Len(t, e.store.Snapshot().Items, 1)

	// 歷史查詢
	w = e.do(t, http.MethodGet, "/calib/api/v1/history?quotation_no=Q-9", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 匯出 CSV
	w = e.do(t, http.MethodGet, "/calib/api/v1/history/export?quotation_no=Q-9&format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "full_data_Q-9.csv")
	assert.Contains(t, w.Body.String(), "報價單號")
}

func TestCaptureRejectedWithoutFocus(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/calib/api/v1/capture/reading", map[string]any{
		"kind": "dut", "dut_value": "1", "unit": "V",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodGet, "/calib/api/v1/capture/context", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClearResetsSessionAndStep(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/calib/api/v1/items", map[string]any{"maker": "Fluke"})

	w := e.do(t, http.MethodPost, "/calib/api/v1/session/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	assert.Equal(t, string(workflow.StepQuotationEntry), res["step"])
	assert.Empty(t, e.store.Snapshot().Items)
}

func TestHistoryRequiresQuotation(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/calib/api/v1/history", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreSetupTemplateCRUD(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/calib/api/v1/presetup/templates", map[string]any{
		"quotation_no": "Q-1", "customer_name": "台積電",
		"items": []map[string]any{{"equipment_id": "CASE-1", "maker": "Fluke"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/calib/api/v1/presetup/templates/Q-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/calib/api/v1/presetup/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/calib/api/v1/presetup/templates/Q-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/calib/api/v1/presetup/templates/Q-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/calib/api/v1/submit", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRemoveStandardEndpoint(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/calib/api/v1/standards", map[string]any{"maker": "Fluke"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, w)
	id := res["standard"].(map[string]any)["id"].(string)
	require.Len(t, e.store.Snapshot().Standards, 1)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/calib/api/v1/standards/%s", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, e.store.Snapshot().Standards)

	// 重複刪除仍成功
	w = e.do(t, http.MethodDelete, fmt.Sprintf("/calib/api/v1/standards/%s", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
