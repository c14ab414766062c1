package domain

// StandardInstrument 標準件（參考用主標準器）。建立後不可變更，
// 需要修改時以刪除後重建取代。
type StandardInstrument struct {
	ID         string              `json:"id"`
	Maker      string              `json:"maker"`
	Model      string              `json:"model"`
	Serial     string              `json:"serial"`
	Image      string              `json:"image,omitempty"`
	Categories []string            `json:"categories,omitempty"`
	Reports    []CalibrationReport `json:"reports,omitempty"`
}

// CalibrationReport 標準件的校正報告與有效期
type CalibrationReport struct {
	ReportNo   string `json:"report_no"`
	ExpiryDate string `json:"expiry_date"`
}

// StandardAttribution 讀數所關聯的標準件識別欄位
type StandardAttribution struct {
	Maker  string `json:"maker"`
	Model  string `json:"model"`
	Serial string `json:"serial"`
}
