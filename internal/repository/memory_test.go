package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

func TestMemoryRecordsSaveAndFetch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordsRepository()

	require.NoError(t, repo.SaveRecord(ctx, &domain.CalibrationRecord{QuotationNo: "Q-1", Value: "99.8"}))
	require.NoError(t, repo.SaveRecord(ctx, &domain.CalibrationRecord{QuotationNo: "Q-1", Value: "99.9"}))
	require.NoError(t, repo.SaveRecord(ctx, &domain.CalibrationRecord{QuotationNo: "Q-2", Value: "10.0"}))

	records, err := repo.FetchByQuotation(ctx, "Q-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	// 保持寫入順序
	assert.Equal(t, "99.8", records[0].Value)
	assert.Equal(t, "99.9", records[1].Value)
	assert.NotEmpty(t, records[0].ID, "missing id is backfilled")

	records, err = repo.FetchByQuotation(ctx, "Q-absent")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryTemplatesUpsertGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTemplatesRepository()

	_, err := repo.Get(ctx, "Q-1")
	assert.ErrorIs(t, err, ErrNotFound)

	tpl := &domain.QuotationTemplate{QuotationNo: "Q-1", CustomerName: "台積電"}
	require.NoError(t, repo.Upsert(ctx, tpl))

	// 同鍵覆寫
	tpl.CustomerName = "聯電"
	require.NoError(t, repo.Upsert(ctx, tpl))

	got, err := repo.Get(ctx, "Q-1")
	require.NoError(t, err)
	assert.Equal(t, "聯電", got.CustomerName)

	require.NoError(t, repo.Upsert(ctx, &domain.QuotationTemplate{QuotationNo: "Q-0"}))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Q-0", list[0].QuotationNo)

	require.NoError(t, repo.Delete(ctx, "Q-1"))
	require.NoError(t, repo.Delete(ctx, "Q-1"), "delete is idempotent")
	_, err = repo.Get(ctx, "Q-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStandardsSaveListDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStandardsRepository()

	std := &domain.StandardInstrument{Maker: "Fluke", Model: "5522A", Serial: "STD-9"}
	require.NoError(t, repo.Save(ctx, std))
	assert.NotEmpty(t, std.ID, "missing id is backfilled")

	require.NoError(t, repo.Save(ctx, &domain.StandardInstrument{ID: "s2", Maker: "Druck", Model: "DPI612"}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Druck", list[0].Maker, "sorted by maker then model")

	require.NoError(t, repo.Delete(ctx, std.ID))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
