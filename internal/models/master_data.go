package models

import "time"

// Master data rows feed the report form dropdowns. The persisted report
// fields stay free-text strings so historical records that predate the
// lists remain readable.

type ValveBrand struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
}

type ValveModel struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	BrandID   *int      `json:"brand_id,omitempty"`
	BrandName string    `json:"brand,omitempty"`
	IsActive  bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
}

type ValveMaterial struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// IOSize pairs an inlet size with one of its permitted outlet sizes
type IOSize struct {
	InletSize  string `json:"inlet_size"`
	OutletSize string `json:"outlet_size"`
}

// IOSizeCatalog is the grouped view the form consumes: outlet options depend
// on the chosen inlet.
type IOSizeCatalog struct {
	Raw         []IOSize            `json:"raw"`
	Grouped     map[string][]string `json:"grouped"`
	InletSizes  []string            `json:"inletSizes"`
	OutletSizes []string            `json:"outletSizes"`
}

// SetPressurePair maps a nominal set pressure to its reference input pressure
type SetPressurePair struct {
	SetPressure   float64 `json:"set_pressure"`
	InputPressure float64 `json:"input_pressure"`
}

// ValveSerial records that a serial number has been tested on a piece of
// equipment. Inserted once per (equipment_no, serial_number), never updated.
type ValveSerial struct {
	ID           int    `json:"id"`
	EquipmentNo  string `json:"equipment_no"`
	SerialNumber string `json:"serial_number"`
}

// ValveHistory is the most recent recorded test data for a serial number,
// used to auto-fill the form when the same valve comes back for retest.
type ValveHistory struct {
	SerialNumber         string  `json:"serial_number"`
	Brand                string  `json:"brand"`
	YearOfManufacture    string  `json:"year_of_manufacture"`
	MaterialType         string  `json:"material_type"`
	Model                string  `json:"model"`
	InletSize            string  `json:"inlet_size"`
	OutletSize           string  `json:"outlet_size"`
	CoefficientDischarge string  `json:"coefficient_discharge"`
	SetPressure          float64 `json:"set_pressure"`
	InputPressure        float64 `json:"input_pressure"`
}
