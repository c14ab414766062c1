package export

import (
	"strings"

	"github.com/d90432206-droid/caliocr/internal/domain"
)

// utf8BOM 讓 Excel 正確判讀 UTF-8 中文
const utf8BOM = "\ufeff"

// rawHeaders 原始資料清單的表頭（表頭不加引號，資料欄位全加引號）
var rawHeaders = []string{
	"報價單號", "案號/設備ID", "廠牌", "型號", "序號",
	"量測類型", "標準值", "實測值", "單位", "照片網址", "建立時間",
}

// pivotHeader 貼上友善格式的表頭，讀值欄固定六欄
const pivotHeader = "類別,標準值,讀值1,讀值2,讀值3,讀值4,讀值5,讀值6"

const maxPivotReadings = 6

// RawCSV 模式一：一筆紀錄一列，全部資料欄位加引號，帶 BOM。
func RawCSV(records []*domain.CalibrationRecord) []byte {
	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString(strings.Join(rawHeaders, ","))
	for _, r := range records {
		b.WriteByte('\n')
		b.WriteString(joinQuoted(
			r.QuotationNo,
			r.EquipmentID,
			r.Maker,
			r.Model,
			r.SerialNumber,
			domain.RecordTypeLabel(r.ReadingType),
			r.StandardValue,
			r.Value,
			r.Unit,
			r.ImageURL,
			r.CreatedAt,
		))
	}
	return []byte(b.String())
}

// PivotCSV 模式二：依類別標籤與標準值分組（維持首次出現順序），
// 每組一列，最多六個讀值欄，帶 BOM。
func PivotCSV(records []*domain.CalibrationRecord) []byte {
	type group struct {
		label    string
		stdValue string
		values   []string
	}
	var groups []*group
	index := map[string]*group{}

	for _, r := range records {
		label := domain.RecordTypeLabel(r.ReadingType)
		stdValue := r.StandardValue
		if stdValue == "" {
			stdValue = "0"
		}
		key := label + "\x00" + stdValue
		g, ok := index[key]
		if !ok {
			g = &group{label: label, stdValue: stdValue}
			index[key] = g
			groups = append(groups, g)
		}
		g.values = append(g.values, r.Value)
	}

	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString(pivotHeader)
	for _, g := range groups {
		values := g.values
		if len(values) > maxPivotReadings {
			values = values[:maxPivotReadings]
		}
		fields := append([]string{g.label, g.stdValue}, values...)
		b.WriteByte('\n')
		b.WriteString(joinQuoted(fields...))
	}
	return []byte(b.String())
}

// joinQuoted 每個欄位加雙引號，內部引號加倍跳脫。
// encoding/csv 無法強制全欄位加引號，因此自行組字串。
func joinQuoted(fields ...string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
