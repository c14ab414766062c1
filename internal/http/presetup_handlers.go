package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/domain"
	"github.com/d90432206-droid/caliocr/internal/repository"
)

// PreSetupHandler 事前作業：報價單模板與標準件登錄的維護端點
type PreSetupHandler struct {
	templates repository.TemplatesRepository
	standards repository.StandardsRepository
	logger    *zap.Logger
}

func NewPreSetupHandler(templates repository.TemplatesRepository, standards repository.StandardsRepository, logger *zap.Logger) *PreSetupHandler {
	return &PreSetupHandler{templates: templates, standards: standards, logger: logger}
}

// ListTemplates 全部模板
func (h *PreSetupHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		h.logger.Error("template list failed", zap.Error(err))
		writeFail(w, http.StatusBadGateway, "查詢失敗，請稍後再試")
		return
	}
	writeOK(w, templates)
}

type templateRequest struct {
	QuotationNo  string                `json:"quotation_no" validate:"required"`
	CustomerName string                `json:"customer_name" validate:"required"`
	Items        []domain.TemplateItem `json:"items"`
}

// SaveTemplate 以報價單號 upsert 模板
func (h *PreSetupHandler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeValid(w, r, &req) {
		return
	}
	tpl := &domain.QuotationTemplate{
		QuotationNo:  req.QuotationNo,
		CustomerName: req.CustomerName,
		Items:        req.Items,
	}
	if err := h.templates.Upsert(r.Context(), tpl); err != nil {
		h.logger.Error("template upsert failed", zap.String("quotation_no", req.QuotationNo), zap.Error(err))
		writeFail(w, http.StatusBadGateway, "儲存失敗，請稍後再試")
		return
	}
	writeOK(w, tpl)
}

// GetTemplate 依報價單號取得模板
func (h *PreSetupHandler) GetTemplate(w http.ResponseWriter, r *http.Request, quotationNo string) {
	tpl, err := h.templates.Get(r.Context(), quotationNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "template not found")
			return
		}
		h.logger.Error("template get failed", zap.String("quotation_no", quotationNo), zap.Error(err))
		writeFail(w, http.StatusBadGateway, "查詢失敗，請稍後再試")
		return
	}
	writeOK(w, tpl)
}

// DeleteTemplate 刪除模板（冪等）
func (h *PreSetupHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request, quotationNo string) {
	if err := h.templates.Delete(r.Context(), quotationNo); err != nil {
		h.logger.Error("template delete failed", zap.String("quotation_no", quotationNo), zap.Error(err))
		writeFail(w, http.StatusBadGateway, "刪除失敗，請稍後再試")
		return
	}
	writeOK(w, map[string]any{"deleted": quotationNo})
}

// ListStandards 標準件登錄清單
func (h *PreSetupHandler) ListStandards(w http.ResponseWriter, r *http.Request) {
	standards, err := h.standards.List(r.Context())
	if err != nil {
		h.logger.Error("standards list failed", zap.Error(err))
		writeFail(w, http.StatusBadGateway, "查詢失敗，請稍後再試")
		return
	}
	writeOK(w, standards)
}

type registryStandardRequest struct {
	ID         string                     `json:"id"`
	Maker      string                     `json:"maker" validate:"required"`
	Model      string                     `json:"model"`
	Serial     string                     `json:"serial"`
	Image      string                     `json:"image"`
	Categories []string                   `json:"categories"`
	Reports    []domain.CalibrationReport `json:"reports"`
}

// SaveStandard 登錄或更新標準件
func (h *PreSetupHandler) SaveStandard(w http.ResponseWriter, r *http.Request) {
	var req registryStandardRequest
	if !decodeValid(w, r, &req) {
		return
	}
	std := &domain.StandardInstrument{
		ID:         req.ID,
		Maker:      req.Maker,
		Model:      req.Model,
		Serial:     req.Serial,
		Image:      req.Image,
		Categories: req.Categories,
		Reports:    req.Reports,
	}
	if err := h.standards.Save(r.Context(), std); err != nil {
		h.logger.Error("standard save failed", zap.Error(err))
		writeFail(w, http.StatusBadGateway, "儲存失敗，請稍後再試")
		return
	}
	writeOK(w, std)
}

// DeleteStandard 刪除登錄的標準件（冪等）
func (h *PreSetupHandler) DeleteStandard(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.standards.Delete(r.Context(), id); err != nil {
		h.logger.Error("standard delete failed", zap.String("id", id), zap.Error(err))
		writeFail(w, http.StatusBadGateway, "刪除失敗，請稍後再試")
		return
	}
	writeOK(w, map[string]any{"deleted": id})
}
