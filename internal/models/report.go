package models

import "time"

// Report lifecycle states. Approved and rejected are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Report shape discriminators for the combined list view
const (
	ReportTypeLegacy  = "legacy"
	ReportTypePOPTest = "pop_test"
)

// ReportHeader is one POP test session for one piece of equipment.
// Each header owns 1 to 5 valve records.
type ReportHeader struct {
	ID           int    `json:"id"`
	ReportNumber string `json:"report_number"`
	OperatorID   int    `json:"operator_id"`
	OperatorName string `json:"operator_name"`
	Company      string `json:"company"`

	EquipmentNo         string `json:"equipment_no"`
	RefNo               string `json:"ref_no"`
	TestMedium          string `json:"test_medium"`
	AmbientTemp         string `json:"ambient_temp"`
	TestDate            string `json:"test_date"`      // YYYY-MM-DD
	NextTestDate        string `json:"next_test_date"` // test_date + 912 days
	MasterPressureGauge string `json:"master_pressure_gauge"`
	CalibrationCert     string `json:"calibration_cert"`
	GaugeDueDate        string `json:"gauge_due_date"`
	Range               string `json:"range"`
	MakeModel           string `json:"make_model"`
	CalibrateCompany    string `json:"calibrate_company"`
	Remarks             string `json:"remarks"`

	Status          string     `json:"status"`
	ApprovedBy      *int       `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValveRecord is one valve's test within a header. ValveIndex is the 1-based
// position in submission order and drives the "SV 1", "SV 2" display order.
type ValveRecord struct {
	ID         int `json:"id"`
	HeaderID   int `json:"header_id"`
	ValveIndex int `json:"valve_index"`

	SerialNumber      string `json:"serial_number"`
	Brand             string `json:"brand"`
	YearOfManufacture string `json:"year_of_manufacture"` // YYYY-MM
	MaterialType      string `json:"material_type"`
	Model             string `json:"model"`

	InletSize            string `json:"inlet_size"`
	OutletSize           string `json:"outlet_size"`
	CoefficientDischarge string `json:"coefficient_discharge"`

	SetPressure   float64 `json:"set_pressure"`   // Bar
	InputPressure float64 `json:"input_pressure"` // Bar
	PopPressure   float64 `json:"pop_pressure"`   // Bar
	ResetPressure float64 `json:"reset_pressure"` // Bar

	// Computed server-side from the pressures, never taken from the client
	PopTolerance   string `json:"pop_tolerance"`
	ResetTolerance string `json:"reset_tolerance"`
	PopResult      string `json:"pop_result"`
	ResetResult    string `json:"reset_result"`
	OverallResult  string `json:"overall_result"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LegacyReport is the pre-split single-table report shape, kept readable for
// historical data. New reports are always header+valves.
type LegacyReport struct {
	ID           int    `json:"id"`
	ReportNumber string `json:"report_number"`
	OperatorID   int    `json:"operator_id"`
	OperatorName string `json:"operator_name"`
	Company      string `json:"company"`

	ValveTagNumber    string   `json:"valve_tag_number"`
	ValveManufacturer string   `json:"valve_manufacturer"`
	ValveModel        string   `json:"valve_model"`
	ValveSize         string   `json:"valve_size"`
	ValveType         string   `json:"valve_type"`
	SetPressure       *float64 `json:"set_pressure"`
	SetPressureUnit   string   `json:"set_pressure_unit"`

	TestDate            string   `json:"test_date"`
	TestLocation        string   `json:"test_location"`
	TestMedium          string   `json:"test_medium"`
	TestTemperature     *float64 `json:"test_temperature"`
	TestTemperatureUnit string   `json:"test_temperature_unit"`

	OpeningPressure *float64 `json:"opening_pressure"`
	ClosingPressure *float64 `json:"closing_pressure"`
	SeatTightness   string   `json:"seat_tightness"`
	TestResult      string   `json:"test_result"` // pass, fail or conditional
	Remarks         string   `json:"remarks"`

	Status          string     `json:"status"`
	ApprovedBy      *int       `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportSummary is the unified list item produced from either storage shape.
// Callers branch on ReportType, never on raw table shape.
type ReportSummary struct {
	ID           int       `json:"id"`
	ReportType   string    `json:"report_type"`
	ReportNumber string    `json:"report_number"`
	OperatorID   int       `json:"operator_id"`
	OperatorName string    `json:"operator_name"`
	Company      string    `json:"company"`
	TestDate     string    `json:"test_date"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`

	// POP test shape only
	EquipmentNo  string `json:"equipment_no,omitempty"`
	RefNo        string `json:"ref_no,omitempty"`
	ValveCount   int    `json:"valve_count,omitempty"`
	ValveSerials string `json:"valve_serials,omitempty"`
	ValveResults string `json:"valve_results,omitempty"`

	// Legacy shape only
	ValveTagNumber    string `json:"valve_tag_number,omitempty"`
	ValveManufacturer string `json:"valve_manufacturer,omitempty"`
	TestResult        string `json:"test_result,omitempty"`
}

// ReportDetail is the single-report view. Exactly one of Legacy or Header is
// set, according to ReportType; Valves accompanies Header.
type ReportDetail struct {
	ReportType string         `json:"report_type"`
	Legacy     *LegacyReport  `json:"legacy_report,omitempty"`
	Header     *ReportHeader  `json:"header,omitempty"`
	Valves     []*ValveRecord `json:"valves,omitempty"`
}

// ReportFilter narrows the combined list query. OperatorID is forced to the
// caller's own id for operator-role callers.
type ReportFilter struct {
	Status     string
	OperatorID int
	StartDate  string
	EndDate    string
	Search     string
}

// ValveInput is one valve as submitted by the report form
type ValveInput struct {
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
	PopPressure          float64 `json:"pop_pressure"`
	ResetPressure        float64 `json:"reset_pressure"`
}

// Empty reports whether the valve slot was left untouched in the form
func (v *ValveInput) Empty() bool {
	return v.SerialNumber == "" && v.Brand == "" && v.Model == ""
}

// CreateReportRequest represents the request body for creating a POP test report
type CreateReportRequest struct {
	EquipmentNo         string        `json:"equipment_no"`
	RefNo               string        `json:"ref_no"`
	TestMedium          string        `json:"test_medium"`
	AmbientTemp         string        `json:"ambient_temp"`
	TestDate            string        `json:"test_date"`
	NextTestDate        string        `json:"next_test_date"`
	MasterPressureGauge string        `json:"master_pressure_gauge"`
	CalibrationCert     string        `json:"calibration_cert"`
	GaugeDueDate        string        `json:"gauge_due_date"`
	Range               string        `json:"range"`
	MakeModel           string        `json:"make_model"`
	CalibrateCompany    string        `json:"calibrate_company"`
	Remarks             string        `json:"remarks"`
	Valves              []*ValveInput `json:"valves"`
}

// CreateReportResult is returned after a successful create
type CreateReportResult struct {
	ReportID     int    `json:"report_id"`
	ReportNumber string `json:"report_number"`
}

// StatusUpdateRequest represents the approve/reject request body
type StatusUpdateRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason"`
}

// UpdateLegacyReportRequest carries a partial update for a legacy report.
// Pointers distinguish "leave unchanged" from "set to empty".
type UpdateLegacyReportRequest struct {
	ValveTagNumber      *string  `json:"valve_tag_number"`
	ValveManufacturer   *string  `json:"valve_manufacturer"`
	ValveModel          *string  `json:"valve_model"`
	ValveSize           *string  `json:"valve_size"`
	ValveType           *string  `json:"valve_type"`
	SetPressure         *float64 `json:"set_pressure"`
	SetPressureUnit     *string  `json:"set_pressure_unit"`
	TestDate            *string  `json:"test_date"`
	TestLocation        *string  `json:"test_location"`
	TestMedium          *string  `json:"test_medium"`
	TestTemperature     *float64 `json:"test_temperature"`
	TestTemperatureUnit *string  `json:"test_temperature_unit"`
	OpeningPressure     *float64 `json:"opening_pressure"`
	ClosingPressure     *float64 `json:"closing_pressure"`
	SeatTightness       *string  `json:"seat_tightness"`
	TestResult          *string  `json:"test_result"`
	Remarks             *string  `json:"remarks"`
}

// DashboardStats aggregates report counts for the dashboard cards
type DashboardStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
}
