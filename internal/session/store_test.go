package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

type fakeMirror struct {
	saved   *domain.SessionScalars
	cleared bool
	loadSc  domain.SessionScalars
	loadErr error
}

func (m *fakeMirror) Save(_ context.Context, sc domain.SessionScalars) error {
	m.saved = &sc
	return nil
}

func (m *fakeMirror) Load(_ context.Context) (domain.SessionScalars, error) {
	return m.loadSc, m.loadErr
}

func (m *fakeMirror) Clear(_ context.Context) error {
	m.cleared = true
	return nil
}

func newTestStore() *Store {
	alloc := NewAllocator()
	alloc.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	return NewStore(context.Background(), alloc, nil)
}

func TestAddItemDefaultEquipmentID(t *testing.T) {
	s := newTestStore()

	item := s.AddItem(IdentityData{Maker: "Fluke", Model: "87V", SerialNumber: "SN-001"})
	require.NotNil(t, item)
	// 2025-03-14T09:26:53Z 的毫秒數
	assert.Equal(t, "EQ-1741944413000", item.EquipmentID)

	explicit := s.AddItem(IdentityData{Maker: "Fluke", EquipmentID: "CASE-42"})
	assert.Equal(t, "CASE-42", explicit.EquipmentID)

	assert.Len(t, s.Snapshot().Items, 2)
}

func TestRecordReadingSequence(t *testing.T) {
	s := newTestStore()
	item := s.AddItem(IdentityData{Maker: "Fluke", Model: "87V", SerialNumber: "SN-001"})
	mt := s.AddMeasurementType(item.ID, domain.KindTemperature, 0)
	require.NotNil(t, mt)
	require.Equal(t, 3, mt.MaxReadings)
	p := s.AddPoint(item.ID, mt.ID, "100", "℃", "")
	require.NotNil(t, p)

	// 標準讀數尚未存在時不可追加待校件讀數
	res := s.RecordReading(item.ID, mt.ID, p.ID, ReadingCapture{Kind: CaptureDUT, DUTValue: "99.8", Unit: "℃"})
	assert.False(t, res.Recorded)
	assert.Empty(t, s.Point(item.ID, mt.ID, p.ID).Readings)

	// 首次擷取：標準讀數 + 第一筆待校件讀數一起提交
	res = s.RecordReading(item.ID, mt.ID, p.ID, ReadingCapture{
		Kind:          CaptureStandard,
		StandardValue: "100.02",
		DUTValue:      "99.8",
		Unit:          "℃",
		Timestamp:     "2025-03-14T09:27:00Z",
		Standard:      &domain.StandardAttribution{Maker: "Fluke", Model: "5522A", Serial: "STD-9"},
	})
	require.True(t, res.Recorded)
	assert.False(t, res.ThresholdReached)

	got := s.Point(item.ID, mt.ID, p.ID)
	require.NotNil(t, got.Standard)
	assert.Equal(t, 0, got.Standard.Seq)
	assert.Equal(t, "100.02", got.Standard.Value)
	assert.Equal(t, "5522A", got.Standard.Model)
	require.Len(t, got.Readings, 1)
	assert.Equal(t, 1, got.Readings[0].Seq)
	// 待校件讀數沿用標準件識別
	assert.Equal(t, "STD-9", got.Readings[0].Serial)

	// 標準讀數已存在時重複的標準擷取被拒絕且無副作用
	res = s.RecordReading(item.ID, mt.ID, p.ID, ReadingCapture{Kind: CaptureStandard, StandardValue: "101", DUTValue: "x", Unit: "℃"})
	assert.False(t, res.Recorded)
	assert.Equal(t, "100.02", s.Point(item.ID, mt.ID, p.ID).Standard.Value)

	// 第二、三筆待校件讀數；第三筆觸發回返訊號
	res = s.RecordReading(item.ID, mt.ID, p.ID, ReadingCapture{Kind: CaptureDUT, DUTValue: "99.9", Unit: "℃"})
	require.True(t, res.Recorded)
	assert.False(t, res.ThresholdReached)

	res = s.RecordReading(item.ID, mt.ID, p.ID, ReadingCapture{Kind: CaptureDUT, DUTValue: "100.0", Unit: "℃"})
	require.True(t, res.Recorded)
	assert.True(t, res.ThresholdReached)

	got = s.Point(item.ID, mt.ID, p.ID)
	require.Len(t, got.Readings, 3)
	for i, r := range got.Readings {
		assert.Equal(t, i+1, r.Seq)
		assert.Equal(t, "Fluke", r.Maker)
	}

	// 超出上限的追加被拒絕
	res = s.RecordReading(item.ID, mt.ID, p.ID, ReadingCapture{Kind: CaptureDUT, DUTValue: "100.1", Unit: "℃"})
	assert.False(t, res.Recorded)
	assert.Len(t, s.Point(item.ID, mt.ID, p.ID).Readings, 3)
}

func TestRecordReadingElectricalSingleShot(t *testing.T) {
	s := newTestStore()
	item := s.AddItem(IdentityData{Maker: "Keysight"})
	mt := s.AddMeasurementType(item.ID, domain.KindDCVoltage, 0)
	require.Equal(t, 1, mt.MaxReadings)
	p := s.AddPoint(item.ID, mt.ID, "10", "V", "")

	res := s.RecordReading(item.ID, mt.ID, p.ID, ReadingCapture{
		Kind: CaptureStandard, StandardValue: "10.001", DUTValue: "10.003", Unit: "V",
	})
	require.True(t, res.Recorded)
	// 電氣類預設一拍即滿
	assert.True(t, res.ThresholdReached)
}

func TestRecordReadingUnknownPath(t *testing.T) {
	s := newTestStore()
	res := s.RecordReading("nope", "nope", "nope", ReadingCapture{Kind: CaptureStandard})
	assert.False(t, res.Recorded)
	assert.False(t, res.ThresholdReached)
}

func TestTreeLocalityOnPointMutation(t *testing.T) {
	s := newTestStore()
	itemA := s.AddItem(IdentityData{Maker: "A"})
	itemB := s.AddItem(IdentityData{Maker: "B"})
	mtA := s.AddMeasurementType(itemA.ID, domain.KindPressure, 0)
	mtB := s.AddMeasurementType(itemB.ID, domain.KindPressure, 0)
	pB := s.AddPoint(itemB.ID, mtB.ID, "500", "kPa", "")

	before := s.Snapshot()
	beforeA := s.Item(itemA.ID)
	beforeB := s.Item(itemB.ID)

	res := s.RecordReading(itemB.ID, mtB.ID, pB.ID, ReadingCapture{
		Kind: CaptureStandard, StandardValue: "500.1", DUTValue: "499.7", Unit: "kPa",
	})
	require.True(t, res.Recorded)

	after := s.Snapshot()
	assert.NotSame(t, before, after, "root must be replaced")
	assert.NotSame(t, beforeB, s.Item(itemB.ID), "mutated branch must be replaced")
	assert.Same(t, beforeA, s.Item(itemA.ID), "untouched sibling must keep pointer identity")
	assert.Same(t, beforeA.Types[0], s.Item(itemA.ID).Types[0])
	_ = mtA

	// 舊快照維持原狀
	assert.Empty(t, findPoint(findType(findItem(before, itemB.ID), mtB.ID), pB.ID).Readings)
}

func TestRemoveStandardIdempotent(t *testing.T) {
	s := newTestStore()
	std := s.AddStandard(StandardData{Maker: "Fluke", Model: "5522A", Serial: "STD-9", Categories: []string{"dc_voltage"}})

	before := s.Snapshot()
	s.RemoveStandard("absent-id")
	assert.Same(t, before, s.Snapshot(), "removing an absent id must not publish a new root")

	s.RemoveStandard(std.ID)
	assert.Empty(t, s.Snapshot().Standards)
	s.RemoveStandard(std.ID)
	assert.Empty(t, s.Snapshot().Standards)
}

func TestEditIdentityPatch(t *testing.T) {
	s := newTestStore()
	item := s.AddItem(IdentityData{Maker: "Fluke", Model: "87V", SerialNumber: "SN-001", Image: "img"})

	model := "87V MAX"
	ok := s.EditIdentity(item.ID, domain.IdentityPatch{Model: &model})
	require.True(t, ok)

	got := s.Item(item.ID).Identity
	assert.Equal(t, "Fluke", got.Maker)
	assert.Equal(t, "87V MAX", got.Model)
	assert.Equal(t, "img", got.Image)

	assert.False(t, s.EditIdentity("absent", domain.IdentityPatch{Model: &model}))
}

func TestStandardLockLifecycle(t *testing.T) {
	s := newTestStore()
	snap := StandardSnapshot{Value: "100.02", Unit: "℃", Maker: "Fluke", Model: "5522A", Serial: "STD-9"}
	s.LockStandard(domain.KindTemperature, "100", snap)

	got, ok := s.LockedStandard(domain.KindTemperature, "100")
	require.True(t, ok)
	assert.Equal(t, snap, got)

	// 同量別不同目標值不共用
	_, ok = s.LockedStandard(domain.KindTemperature, "200")
	assert.False(t, ok)
	// 不同量別相同目標值不共用
	_, ok = s.LockedStandard(domain.KindPressure, "100")
	assert.False(t, ok)

	s.UnlockStandard(domain.KindTemperature, "100")
	_, ok = s.LockedStandard(domain.KindTemperature, "100")
	assert.False(t, ok)
}

func TestApplyTemplate(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.SetQuotationMeta(context.Background(), "", "", "23.5", "55"))

	s.ApplyTemplate(&domain.QuotationTemplate{
		QuotationNo:  "Q-2025-001",
		CustomerName: "台積電",
		Items: []domain.TemplateItem{{
			EquipmentID: "CASE-7", Maker: "Fluke", Model: "87V", SerialNumber: "SN-001",
			Types: []domain.TemplateType{{
				Kind: domain.KindTemperature,
				Points: []domain.TemplatePoint{{TargetValue: "100", Unit: "℃"}},
			}},
		}},
	})

	sess := s.Snapshot()
	assert.Equal(t, "Q-2025-001", sess.QuotationNo)
	assert.Equal(t, "台積電", sess.CustomerName)
	// 環境值保留操作員輸入
	assert.Equal(t, "23.5", sess.Temperature)
	assert.Equal(t, "55", sess.Humidity)

	require.Len(t, sess.Items, 1)
	item := sess.Items[0]
	assert.Equal(t, "CASE-7", item.EquipmentID)
	assert.NotEmpty(t, item.ID)
	require.Len(t, item.Types, 1)
	assert.Equal(t, 3, item.Types[0].MaxReadings, "template without explicit count falls back to kind default")
	require.Len(t, item.Types[0].Points, 1)
	assert.NotEmpty(t, item.Types[0].Points[0].ID)
	assert.Empty(t, item.Types[0].Points[0].Readings)
}

func TestMirrorSaveRestoreClear(t *testing.T) {
	ctx := context.Background()
	m := &fakeMirror{loadErr: errors.New("miss")}
	s := NewStore(ctx, NewAllocator(), m)

	require.NoError(t, s.SetQuotationMeta(ctx, "宏達電", "Q-9", "24.1", "60"))
	require.NotNil(t, m.saved)
	assert.Equal(t, "Q-9", m.saved.QuotationNo)

	// 重啟：自鏡射還原四個純量欄位
	restored := NewStore(ctx, NewAllocator(), &fakeMirror{loadSc: *m.saved})
	sess := restored.Snapshot()
	assert.Equal(t, "宏達電", sess.CustomerName)
	assert.Equal(t, "24.1", sess.Temperature)
	assert.Empty(t, sess.Items)

	require.NoError(t, s.Clear(ctx))
	assert.True(t, m.cleared)
}

func TestClearResetsEverything(t *testing.T) {
	s := newTestStore()
	s.AddStandard(StandardData{Maker: "Fluke"})
	item := s.AddItem(IdentityData{Maker: "Fluke"})
	s.AddMeasurementType(item.ID, domain.KindResistance, 0)
	s.LockStandard(domain.KindResistance, "1000", StandardSnapshot{Value: "1000.2", Unit: "Ω"})
	require.NoError(t, s.SetQuotationMeta(context.Background(), "c", "q", "23", "50"))

	require.NoError(t, s.Clear(context.Background()))

	sess := s.Snapshot()
	assert.Empty(t, sess.CustomerName)
	assert.Empty(t, sess.QuotationNo)
	assert.Empty(t, sess.Standards)
	assert.Empty(t, sess.Items)
	_, ok := s.LockedStandard(domain.KindResistance, "1000")
	assert.False(t, ok)
}
