package domain

// Kind 校正量別（量測類別）
type Kind string

const (
	KindDCVoltage       Kind = "dc_voltage"
	KindDCCurrent       Kind = "dc_current"
	KindACVoltage       Kind = "ac_voltage"
	KindACCurrent       Kind = "ac_current"
	KindResistance      Kind = "resistance"
	KindPower           Kind = "power"
	KindTemperature     Kind = "temperature"
	KindPressure        Kind = "pressure"
	KindDiffPressure    Kind = "diff_pressure"
	KindDigitalPressure Kind = "digital_pressure"
)

// Kinds 固定順序的量別清單（與前端選單順序一致）
var Kinds = []Kind{
	KindDCVoltage, KindDCCurrent,
	KindACVoltage, KindACCurrent,
	KindResistance, KindPower,
	KindTemperature, KindPressure,
	KindDiffPressure, KindDigitalPressure,
}

var kindLabels = map[Kind]string{
	KindDCVoltage:       "直流電壓 DCV",
	KindDCCurrent:       "直流電流 DCA",
	KindACVoltage:       "交流電壓 ACV",
	KindACCurrent:       "交流電流 ACA",
	KindResistance:      "電阻 Resistance",
	KindPower:           "電功率 Power",
	KindTemperature:     "溫度記錄 Temp",
	KindPressure:        "壓力數值 Press",
	KindDiffPressure:    "差壓 Diff Press",
	KindDigitalPressure: "數字壓力計 Digital",
}

var kindUnits = map[Kind][]string{
	KindDCVoltage:       {"mV", "V", "kV"},
	KindDCCurrent:       {"μA", "mA", "A"},
	KindACVoltage:       {"mV", "V", "kV"},
	KindACCurrent:       {"μA", "mA", "A"},
	KindResistance:      {"mΩ", "Ω", "kΩ", "MΩ"},
	KindPower:           {"mW", "W", "kW"},
	KindTemperature:     {"℃", "Ω"},
	KindPressure:        {"Pa", "kPa", "MPa"},
	KindDiffPressure:    {"Pa", "kPa", "MPa"},
	KindDigitalPressure: {"Pa", "kPa", "MPa"},
}

// 電氣類預設拍 1 次，溫度/壓力類預設拍 3 次
var kindDefaultReadings = map[Kind]int{
	KindDCVoltage:       1,
	KindDCCurrent:       1,
	KindACVoltage:       1,
	KindACCurrent:       1,
	KindResistance:      1,
	KindPower:           1,
	KindTemperature:     3,
	KindPressure:        3,
	KindDiffPressure:    3,
	KindDigitalPressure: 3,
}

// Valid reports whether k is one of the known measurement categories.
func (k Kind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label returns the bilingual display label, falling back to the raw kind
// for unknown values (same behavior as the CSV/history views).
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// UnitOptions returns the selectable units for the kind (nil for unknown).
func (k Kind) UnitOptions() []string {
	return kindUnits[k]
}

// DefaultMaxReadings returns the default DUT shot count for the kind.
func (k Kind) DefaultMaxReadings() int {
	if n, ok := kindDefaultReadings[k]; ok {
		return n
	}
	return 3
}

// HasFrequency reports whether points of this kind carry a frequency tag
// (AC and power measurements only).
func (k Kind) HasFrequency() bool {
	switch k {
	case KindACVoltage, KindACCurrent, KindPower:
		return true
	}
	return false
}

// AllowsStandardUnitMismatch reports whether a standard capture may use a
// unit different from the point's nominal unit. Only temperature: a
// reference resistance standard (Ω) may calibrate a temperature point (℃).
func (k Kind) AllowsStandardUnitMismatch() bool {
	return k == KindTemperature
}

// MeasurementType 單一設備下的一個校正量別
type MeasurementType struct {
	ID          string             `json:"id"`
	Kind        Kind               `json:"type"`
	MaxReadings int                `json:"maxReadings"`
	Points      []*CalibrationPoint `json:"points"`
}
