package domain

// QuotationTemplate 事前作業建立的報價單模板（以 quotation_no upsert）。
// Items 僅帶設備骨架（量別與點位，不含讀數）。
type QuotationTemplate struct {
	QuotationNo  string         `json:"quotation_no"`
	CustomerName string         `json:"customer_name"`
	Items        []TemplateItem `json:"items"`
}

// TemplateItem 模板中的待校設備骨架
type TemplateItem struct {
	ID           string         `json:"id,omitempty"`
	EquipmentID  string         `json:"equipment_id"`
	Maker        string         `json:"maker"`
	Model        string         `json:"model"`
	SerialNumber string         `json:"serial_number"`
	Types        []TemplateType `json:"measurementTypes,omitempty"`
}

// TemplateType 模板中的量別骨架
type TemplateType struct {
	ID          string          `json:"id,omitempty"`
	Kind        Kind            `json:"type"`
	MaxReadings int             `json:"maxReadings"`
	Points      []TemplatePoint `json:"points,omitempty"`
}

// TemplatePoint 模板中的點位骨架
type TemplatePoint struct {
	ID          string `json:"id,omitempty"`
	TargetValue string `json:"targetValue"`
	Unit        string `json:"unit"`
	Frequency   string `json:"frequency,omitempty"`
}
