package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/service"
)

// AnalyzeHandler 影像辨識代理端點。失敗一律回 200 帶結構化錯誤，
// 讓行動端維持互動而不是吃到 500。
type AnalyzeHandler struct {
	vision *service.VisionClient
	logger *zap.Logger
}

func NewAnalyzeHandler(vision *service.VisionClient, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{vision: vision, logger: logger}
}

type analyzeRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
	Mode        string `json:"mode" validate:"required,oneof=identity reading"`
	Type        string `json:"type"`
}

// Analyze 辨識一張照片，回傳模型輸出的 JSON 原文
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeValid(w, r, &req) {
		return
	}

	raw, err := h.vision.Analyze(r.Context(), req.ImageBase64, req.Mode, req.Type)
	if err != nil {
		var verr *service.VisionError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusOK, verr)
			return
		}
		h.logger.Error("analyze failed", zap.Error(err))
		writeJSON(w, http.StatusOK, &service.VisionError{Code: "server_error", Message: "伺服器內部異常"})
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
