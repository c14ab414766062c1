package httpapi

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/export"
	"github.com/d90432206-droid/caliocr/internal/repository"
)

// HistoryHandler 歷史紀錄查詢與匯出
type HistoryHandler struct {
	records repository.RecordsRepository
	logger  *zap.Logger
}

func NewHistoryHandler(records repository.RecordsRepository, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{records: records, logger: logger}
}

// Query 依報價單號查詢全部紀錄
func (h *HistoryHandler) Query(w http.ResponseWriter, r *http.Request) {
	quotationNo := r.URL.Query().Get("quotation_no")
	if quotationNo == "" {
		writeFail(w, http.StatusBadRequest, "quotation_no is required")
		return
	}
	records, err := h.records.FetchByQuotation(r.Context(), quotationNo)
	if err != nil {
		h.logger.Error("history query failed", zap.String("quotation_no", quotationNo), zap.Error(err))
		writeFail(w, http.StatusBadGateway, "查詢失敗，請稍後再試")
		return
	}
	writeOK(w, records)
}

// Export 匯出查詢結果。format: csv（原始清單）| pivot（貼上友善）| xlsx
func (h *HistoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	quotationNo := r.URL.Query().Get("quotation_no")
	if quotationNo == "" {
		writeFail(w, http.StatusBadRequest, "quotation_no is required")
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	records, err := h.records.FetchByQuotation(r.Context(), quotationNo)
	if err != nil {
		h.logger.Error("history export failed", zap.String("quotation_no", quotationNo), zap.Error(err))
		writeFail(w, http.StatusBadGateway, "查詢失敗，請稍後再試")
		return
	}

	switch format {
	case "csv":
		serveDownload(w, fmt.Sprintf("full_data_%s.csv", quotationNo), "text/csv; charset=utf-8", export.RawCSV(records))
	case "pivot":
		serveDownload(w, fmt.Sprintf("excel_paste_%s.csv", quotationNo), "text/csv; charset=utf-8", export.PivotCSV(records))
	case "xlsx":
		data, err := export.RecordsExcel(records)
		if err != nil {
			h.logger.Error("excel export failed", zap.Error(err))
			writeFail(w, http.StatusInternalServerError, "匯出失敗")
			return
		}
		serveDownload(w, fmt.Sprintf("records_%s.xlsx", quotationNo),
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		writeFail(w, http.StatusBadRequest, "unknown format: "+format)
	}
}

func serveDownload(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
