package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/d90432206-droid/caliocr/internal/domain"
	"github.com/d90432206-droid/caliocr/internal/repository"
)

func buildSession() *domain.Session {
	return &domain.Session{
		CustomerName: "台積電",
		QuotationNo:  "Q-2025-001",
		Temperature:  "23.5",
		Humidity:     "55",
		Items: []*domain.EquipmentItem{{
			ID:          "item-1",
			EquipmentID: "EQ-1",
			Identity: domain.Identity{
				Maker: "Fluke", Model: "87V", SerialNumber: "SN-001", Image: "data:image/jpeg;base64,nameplate",
			},
			Types: []*domain.MeasurementType{{
				ID: "type-1", Kind: domain.KindTemperature, MaxReadings: 3,
				Points: []*domain.CalibrationPoint{{
					ID: "point-1", TargetValue: "100", Unit: "℃",
					Standard: &domain.Reading{
						Value: "100.02", Unit: "℃", Image: "std.jpg", Timestamp: "2025-03-14T09:27:00Z",
						Maker: "Fluke", Model: "5522A", Serial: "STD-9",
					},
					Readings: []*domain.Reading{
						{Seq: 1, Value: "99.8", Unit: "℃", Image: "r1.jpg", Timestamp: "2025-03-14T09:28:00Z", Maker: "Fluke", Model: "5522A", Serial: "STD-9"},
						{Seq: 2, Value: "99.9", Unit: "℃", Image: "r2.jpg", Timestamp: "2025-03-14T09:29:00Z", Maker: "Fluke", Model: "5522A", Serial: "STD-9"},
					},
				}},
			}},
		}},
	}
}

func fixedNow() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }

func TestFlattenOrderAndFields(t *testing.T) {
	records := Flatten(buildSession(), fixedNow)
	require.Len(t, records, 4)

	// 銘牌照片先行
	id := records[0]
	assert.Equal(t, domain.ReadingTypeIdentity, id.ReadingType)
	assert.Equal(t, "N/A", id.StandardValue)
	assert.Equal(t, "Nameplate", id.Value)
	assert.Equal(t, "Img", id.Unit)
	assert.Equal(t, "2025-03-14T09:30:00Z", id.CreatedAt)

	// 標準紀錄帶 _STANDARD 後綴與標準件識別
	std := records[1]
	assert.Equal(t, "temperature_STANDARD", std.ReadingType)
	assert.Equal(t, "100", std.StandardValue)
	assert.Equal(t, "100.02", std.Value)
	assert.Equal(t, "5522A", std.StdModel)
	assert.Equal(t, "2025-03-14T09:27:00Z", std.CreatedAt)

	// 讀數依 seq 順序，帶環境值與標準件溯源
	r1, r2 := records[2], records[3]
	assert.Equal(t, "temperature", r1.ReadingType)
	assert.Equal(t, "99.8", r1.Value)
	assert.Equal(t, "99.9", r2.Value)
	assert.Equal(t, "23.5", r1.EnvTemp)
	assert.Equal(t, "55", r1.EnvHumidity)
	assert.Equal(t, "STD-9", r1.StdSerial)
	assert.Equal(t, "℃", r1.StdUnit)
}

func TestFlattenSkipsIdentityWithoutImage(t *testing.T) {
	sess := buildSession()
	sess.Items[0].Identity.Image = ""

	records := Flatten(sess, fixedNow)
	require.Len(t, records, 3)
	assert.Equal(t, "temperature_STANDARD", records[0].ReadingType)
}

func TestSubmitAllSuccess(t *testing.T) {
	repo := repository.NewMemoryRecordsRepository()
	sub := NewSubmitter(repo, zap.NewNop())

	n, err := sub.SubmitAll(context.Background(), buildSession())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	stored, err := repo.FetchByQuotation(context.Background(), "Q-2025-001")
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

type failAfterRepo struct {
	inner  repository.RecordsRepository
	failAt int
	calls  int
}

func (f *failAfterRepo) SaveRecord(ctx context.Context, rec *domain.CalibrationRecord) error {
	f.calls++
	if f.calls > f.failAt {
		return errors.New("remote unavailable")
	}
	return f.inner.SaveRecord(ctx, rec)
}

func (f *failAfterRepo) FetchByQuotation(ctx context.Context, q string) ([]*domain.CalibrationRecord, error) {
	return f.inner.FetchByQuotation(ctx, q)
}

func TestSubmitAllAbortsOnFirstError(t *testing.T) {
	mem := repository.NewMemoryRecordsRepository()
	repo := &failAfterRepo{inner: mem, failAt: 2}
	sub := NewSubmitter(repo, zap.NewNop())

	n, err := sub.SubmitAll(context.Background(), buildSession())
	require.Error(t, err)
	assert.Equal(t, 2, n)
	// 失敗後不再嘗試後續紀錄
	assert.Equal(t, 3, repo.calls)

	// 已寫入的紀錄保留（至少一次語意，不回滾）
	stored, err := mem.FetchByQuotation(context.Background(), "Q-2025-001")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
