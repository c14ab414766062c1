package domain

// CalibrationPoint 校正點位。Standard 為 seq=0 的標準器讀數，
// Readings 為 seq=1..N 的待校件讀數（append-only）。
type CalibrationPoint struct {
	ID          string     `json:"id"`
	TargetValue string     `json:"targetValue"` // 目標值，純文字（不保證可解析為數值）
	Unit        string     `json:"unit"`
	Frequency   string     `json:"frequency,omitempty"`
	Standard    *Reading   `json:"standard"`
	Readings    []*Reading `json:"readings"`
}

// Attribution returns the standard maker/model/serial carried by the
// point's standard reading, or zero values when no standard exists yet.
func (p *CalibrationPoint) Attribution() StandardAttribution {
	if p.Standard == nil {
		return StandardAttribution{}
	}
	return StandardAttribution{
		Maker:  p.Standard.Maker,
		Model:  p.Standard.Model,
		Serial: p.Standard.Serial,
	}
}

// Complete reports whether the point reached the max reading count.
func (p *CalibrationPoint) Complete(maxReadings int) bool {
	return len(p.Readings) >= maxReadings
}

// Reading 單張照片對應的一筆讀數
type Reading struct {
	ID        string `json:"id"`
	Image     string `json:"image"` // 壓縮後的 JPEG（base64 data URL），內容不在核心驗證範圍
	Value     string `json:"value"`
	Unit      string `json:"unit"`
	Timestamp string `json:"timestamp"` // RFC3339
	Seq       int    `json:"seq"`       // 0=標準器讀數，1..N=待校件讀數
	Maker     string `json:"maker,omitempty"`
	Model     string `json:"model,omitempty"`
	Serial    string `json:"serial,omitempty"`
}
