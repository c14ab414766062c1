package domain

// EquipmentItem 待校設備（DUT）
type EquipmentItem struct {
	ID          string             `json:"id"`
	EquipmentID string             `json:"equipment_id"` // 案號（操作員輸入或 EQ-<millis> 預設）
	Identity    Identity           `json:"identity"`
	Types       []*MeasurementType `json:"measurementTypes"`
}

// Identity 設備銘牌資訊
type Identity struct {
	Maker        string `json:"maker"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Image        string `json:"image,omitempty"`
}

// IdentityPatch 銘牌編輯的部分更新；nil 欄位表示不變更。
type IdentityPatch struct {
	Maker        *string `json:"maker,omitempty"`
	Model        *string `json:"model,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Image        *string `json:"image,omitempty"`
}

// Apply merges the patch into id, leaving nil fields untouched.
func (p IdentityPatch) Apply(id Identity) Identity {
	if p.Maker != nil {
		id.Maker = *p.Maker
	}
	if p.Model != nil {
		id.Model = *p.Model
	}
	if p.SerialNumber != nil {
		id.SerialNumber = *p.SerialNumber
	}
	if p.Image != nil {
		id.Image = *p.Image
	}
	return id
}
