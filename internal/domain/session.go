package domain

// Session 整張校正工作單的工作樹（揮發性，存活於單一作業階段）
type Session struct {
	CustomerName string                `json:"customer_name"`
	QuotationNo  string                `json:"quotation_no"`
	Temperature  string                `json:"temperature"`
	Humidity     string                `json:"humidity"`
	Standards    []*StandardInstrument `json:"standards"`
	Items        []*EquipmentItem      `json:"items"`
}

// Scalars returns the four mirrored scalar fields.
func (s *Session) Scalars() SessionScalars {
	return SessionScalars{
		CustomerName: s.CustomerName,
		QuotationNo:  s.QuotationNo,
		Temperature:  s.Temperature,
		Humidity:     s.Humidity,
	}
}

// SessionScalars 需鏡射到本機 KV 的四個欄位
type SessionScalars struct {
	CustomerName string
	QuotationNo  string
	Temperature  string
	Humidity     string
}
