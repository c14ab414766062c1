package domain

const (
	// ReadingTypeIdentity 銘牌照片紀錄的 reading_type
	ReadingTypeIdentity = "Identity Photo"
	// StandardRecordSuffix 標準器讀數紀錄的 reading_type 後綴（<kind>_STANDARD）
	StandardRecordSuffix = "_STANDARD"
)

// CalibrationRecord 送往持久層的攤平紀錄，一筆對應一張照片。
// 欄位對齊遠端 readings 資料表。
type CalibrationRecord struct {
	ID            string `json:"id,omitempty"`
	CustomerName  string `json:"customer_name"`
	EquipmentID   string `json:"equipment_id"` // 案號
	QuotationNo   string `json:"quotation_no"`
	Maker         string `json:"maker"`
	Model         string `json:"model"`
	SerialNumber  string `json:"serial_number"`
	ReadingType   string `json:"reading_type"`
	StandardValue string `json:"standard_value"` // 標準值（目標值）
	Value         string `json:"value"`          // 實測值
	Unit          string `json:"unit"`
	Frequency     string `json:"frequency,omitempty"` // AC/Power only
	EnvTemp       string `json:"environment_temp,omitempty"`
	EnvHumidity   string `json:"environment_humidity,omitempty"`
	StdMaker      string `json:"std_maker,omitempty"`
	StdModel      string `json:"std_model,omitempty"`
	StdSerial     string `json:"std_serial,omitempty"`
	StdUnit       string `json:"std_unit,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// RecordTypeLabel 供匯出使用：已知量別回傳雙語標籤，其餘原樣回傳
// （銘牌照片與 _STANDARD 類型即屬後者）。
func RecordTypeLabel(readingType string) string {
	return Kind(readingType).Label()
}
