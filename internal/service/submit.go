package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/domain"
	"github.com/d90432206-droid/caliocr/internal/repository"
)

// Submitter 提交管線：把完成的工作樹攤平為紀錄串流，
// 逐筆循序寫入持久層（不批次、不交易）。
type Submitter struct {
	records repository.RecordsRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewSubmitter(records repository.RecordsRepository, logger *zap.Logger) *Submitter {
	return &Submitter{
		records: records,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Flatten 依固定順序攤平工作樹：
// 逐設備 →（銘牌照片紀錄）→ 逐量別 → 逐點位 →（標準紀錄）→ 逐讀數。
func Flatten(sess *domain.Session, now func() time.Time) []*domain.CalibrationRecord {
	var out []*domain.CalibrationRecord
	for _, item := range sess.Items {
		if item.Identity.Image != "" {
			out = append(out, &domain.CalibrationRecord{
				CustomerName:  sess.CustomerName,
				EquipmentID:   item.EquipmentID,
				QuotationNo:   sess.QuotationNo,
				Maker:         item.Identity.Maker,
				Model:         item.Identity.Model,
				SerialNumber:  item.Identity.SerialNumber,
				ReadingType:   domain.ReadingTypeIdentity,
				StandardValue: "N/A",
				Value:         "Nameplate",
				Unit:          "Img",
				ImageURL:      item.Identity.Image,
				CreatedAt:     now().Format(time.RFC3339),
			})
		}
		for _, mt := range item.Types {
			for _, p := range mt.Points {
				if p.Standard != nil {
					out = append(out, &domain.CalibrationRecord{
						CustomerName:  sess.CustomerName,
						EquipmentID:   item.EquipmentID,
						QuotationNo:   sess.QuotationNo,
						Maker:         item.Identity.Maker,
						Model:         item.Identity.Model,
						SerialNumber:  item.Identity.SerialNumber,
						ReadingType:   string(mt.Kind) + domain.StandardRecordSuffix,
						StandardValue: p.TargetValue,
						Value:         p.Standard.Value,
						Unit:          p.Standard.Unit,
						StdMaker:      p.Standard.Maker,
						StdModel:      p.Standard.Model,
						StdSerial:     p.Standard.Serial,
						StdUnit:       p.Standard.Unit,
						ImageURL:      p.Standard.Image,
						CreatedAt:     p.Standard.Timestamp,
					})
				}
				attr := p.Attribution()
				stdUnit := ""
				if p.Standard != nil {
					stdUnit = p.Standard.Unit
				}
				for _, r := range p.Readings {
					out = append(out, &domain.CalibrationRecord{
						CustomerName:  sess.CustomerName,
						EquipmentID:   item.EquipmentID,
						QuotationNo:   sess.QuotationNo,
						Maker:         item.Identity.Maker,
						Model:         item.Identity.Model,
						SerialNumber:  item.Identity.SerialNumber,
						ReadingType:   string(mt.Kind),
						StandardValue: p.TargetValue,
						Value:         r.Value,
						Unit:          r.Unit,
						Frequency:     p.Frequency,
						EnvTemp:       sess.Temperature,
						EnvHumidity:   sess.Humidity,
						StdMaker:      attr.Maker,
						StdModel:      attr.Model,
						StdSerial:     attr.Serial,
						StdUnit:       stdUnit,
						ImageURL:      r.Image,
						CreatedAt:     r.Timestamp,
					})
				}
			}
		}
	}
	return out
}

// SubmitAll 循序寫入全部紀錄。任一筆失敗即中止並回報一個彙總錯誤；
// 已寫入的紀錄不回滾也不重試（至少一次語意）。
// 回傳成功寫入的筆數。
func (s *Submitter) SubmitAll(ctx context.Context, sess *domain.Session) (int, error) {
	records := Flatten(sess, s.now)
	for i, rec := range records {
		if err := s.records.SaveRecord(ctx, rec); err != nil {
			s.logger.Error("submission aborted",
				zap.String("quotation_no", sess.QuotationNo),
				zap.String("reading_type", rec.ReadingType),
				zap.Int("submitted", i),
				zap.Int("total", len(records)),
				zap.Error(err))
			return i, fmt.Errorf("submission aborted after %d/%d records: %w", i, len(records), err)
		}
	}
	s.logger.Info("submission complete",
		zap.String("quotation_no", sess.QuotationNo),
		zap.Int("records", len(records)))
	return len(records), nil
}
