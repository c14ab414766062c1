package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用標準庫 http.ServeMux（避免引入第三方路由依賴）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterWorkflowRoutes 擷取流程端點（與擷取前端對齊）
func (r *Router) RegisterWorkflowRoutes(h *WorkflowHandler) {
	r.Handle("/calib/api/v1/session", methodOnly(http.MethodGet, h.GetSession))
	r.Handle("/calib/api/v1/session/quotation", methodOnly(http.MethodPost, h.CompleteQuotation))
	r.Handle("/calib/api/v1/session/clear", methodOnly(http.MethodPost, h.Clear))

	r.Handle("/calib/api/v1/standards", methodOnly(http.MethodPost, h.AddStandard))
	r.Handle("/calib/api/v1/standards/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(req.URL.Path, "/calib/api/v1/standards/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.RemoveStandard(w, req, id)
	})

	r.Handle("/calib/api/v1/items", methodOnly(http.MethodPost, h.CompleteIdentity))
	r.Handle("/calib/api/v1/items/select", methodOnly(http.MethodPost, h.SelectItem))
	r.Handle("/calib/api/v1/items/identity", methodOnly(http.MethodPut, h.EditIdentity))

	r.Handle("/calib/api/v1/types", methodOnly(http.MethodPost, h.SelectCategory))
	r.Handle("/calib/api/v1/types/select", methodOnly(http.MethodPost, h.SelectType))

	r.Handle("/calib/api/v1/points", methodOnly(http.MethodPost, h.AddPoint))
	r.Handle("/calib/api/v1/points/select", methodOnly(http.MethodPost, h.SelectPoint))

	r.Handle("/calib/api/v1/capture/context", methodOnly(http.MethodGet, h.GetCaptureContext))
	r.Handle("/calib/api/v1/capture/reading", methodOnly(http.MethodPost, h.CaptureReading))
	r.Handle("/calib/api/v1/capture/unlock", methodOnly(http.MethodPost, h.UnlockStandard))

	r.Handle("/calib/api/v1/submit", methodOnly(http.MethodPost, h.Submit))

	r.Handle("/calib/api/v1/workflow/step", methodOnly(http.MethodGet, h.GetStep))
	r.Handle("/calib/api/v1/workflow/back", methodOnly(http.MethodPost, h.Back))
	r.Handle("/calib/api/v1/workflow/navigate", methodOnly(http.MethodPost, h.Navigate))
}

// RegisterHistoryRoutes 歷史查詢與匯出
func (r *Router) RegisterHistoryRoutes(h *HistoryHandler) {
	r.Handle("/calib/api/v1/history", methodOnly(http.MethodGet, h.Query))
	r.Handle("/calib/api/v1/history/export", methodOnly(http.MethodGet, h.Export))
}

// RegisterPreSetupRoutes 事前作業端點
func (r *Router) RegisterPreSetupRoutes(h *PreSetupHandler) {
	r.Handle("/calib/api/v1/presetup/templates", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListTemplates(w, req)
		case http.MethodPost:
			h.SaveTemplate(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle("/calib/api/v1/presetup/templates/", func(w http.ResponseWriter, req *http.Request) {
		quotationNo := strings.TrimPrefix(req.URL.Path, "/calib/api/v1/presetup/templates/")
		if quotationNo == "" || strings.Contains(quotationNo, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.GetTemplate(w, req, quotationNo)
		case http.MethodDelete:
			h.DeleteTemplate(w, req, quotationNo)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/calib/api/v1/presetup/standards", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListStandards(w, req)
		case http.MethodPost:
			h.SaveStandard(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle("/calib/api/v1/presetup/standards/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(req.URL.Path, "/calib/api/v1/presetup/standards/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.DeleteStandard(w, req, id)
	})
}

// RegisterAnalyzeRoutes 影像辨識代理（沿用行動端既有路徑）
func (r *Router) RegisterAnalyzeRoutes(h *AnalyzeHandler) {
	r.Handle("/api/analyze", methodOnly(http.MethodPost, h.Analyze))
}
