package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"valve-backend/internal/apperrors"
	"valve-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository persists POP test reports in the header/valves shape
type ReportRepository struct {
	DB *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{DB: db}
}

const headerColumns = `id, report_number, operator_id, operator_name, company,
	equipment_no, ref_no, test_medium, ambient_temp,
	to_char(test_date, 'YYYY-MM-DD'),
	COALESCE(to_char(next_test_date, 'YYYY-MM-DD'), ''),
	master_pressure_gauge, calibration_cert,
	COALESCE(to_char(gauge_due_date, 'YYYY-MM-DD'), ''),
	range_field, make_model, calibrate_company,
	COALESCE(remarks, ''), status, approved_by, approved_at,
	COALESCE(rejection_reason, ''), created_at, updated_at`

func scanHeader(row pgx.Row) (*models.ReportHeader, error) {
	var h models.ReportHeader
	err := row.Scan(&h.ID, &h.ReportNumber, &h.OperatorID, &h.OperatorName, &h.Company,
		&h.EquipmentNo, &h.RefNo, &h.TestMedium, &h.AmbientTemp,
		&h.TestDate, &h.NextTestDate,
		&h.MasterPressureGauge, &h.CalibrationCert, &h.GaugeDueDate,
		&h.Range, &h.MakeModel, &h.CalibrateCompany,
		&h.Remarks, &h.Status, &h.ApprovedBy, &h.ApprovedAt,
		&h.RejectionReason, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create inserts the header, its valves and the serial registry rows in one
// transaction. A duplicate report number surfaces as a conflict error.
func (r *ReportRepository) Create(ctx context.Context, h *models.ReportHeader, valves []*models.ValveRecord) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO pop_test_headers(report_number, operator_id, operator_name, company,
		 equipment_no, ref_no, test_medium, ambient_temp, test_date, next_test_date,
		 master_pressure_gauge, calibration_cert, gauge_due_date, range_field,
		 make_model, calibrate_company, remarks)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9::date, NULLIF($10, '')::date,
		 $11, $12, NULLIF($13, '')::date, $14, $15, $16, $17)
		 RETURNING id, status, created_at, updated_at`,
		h.ReportNumber, h.OperatorID, h.OperatorName, h.Company,
		h.EquipmentNo, h.RefNo, h.TestMedium, h.AmbientTemp, h.TestDate, h.NextTestDate,
		h.MasterPressureGauge, h.CalibrationCert, h.GaugeDueDate, h.Range,
		h.MakeModel, h.CalibrateCompany, h.Remarks,
	).Scan(&h.ID, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.Conflict("report number already exists")
		}
		return err
	}

	for _, v := range valves {
		v.HeaderID = h.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO pop_test_valves(header_id, valve_index, serial_number, brand,
			 year_of_manufacture, material_type, model, inlet_size, outlet_size,
			 coefficient_discharge, set_pressure, input_pressure, pop_pressure, reset_pressure,
			 pop_tolerance, reset_tolerance, pop_result, reset_result, overall_result)
			 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			 RETURNING id, created_at, updated_at`,
			v.HeaderID, v.ValveIndex, v.SerialNumber, v.Brand,
			v.YearOfManufacture, v.MaterialType, v.Model, v.InletSize, v.OutletSize,
			v.CoefficientDischarge, v.SetPressure, v.InputPressure, v.PopPressure, v.ResetPressure,
			v.PopTolerance, v.ResetTolerance, v.PopResult, v.ResetResult, v.OverallResult,
		).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
		if err != nil {
			return err
		}

		// Register the serial against the equipment for later auto-fill
		_, err = tx.Exec(ctx,
			`INSERT INTO valve_serials(equipment_no, serial_number) VALUES($1, $2)
			 ON CONFLICT (equipment_no, serial_number) DO NOTHING`,
			h.EquipmentNo, v.SerialNumber)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ReportRepository) GetHeader(ctx context.Context, id int) (*models.ReportHeader, error) {
	return scanHeader(r.DB.QueryRow(ctx,
		`SELECT `+headerColumns+` FROM pop_test_headers WHERE id=$1`, id))
}

// GetValves returns the valves of a header in submission order
func (r *ReportRepository) GetValves(ctx context.Context, headerID int) ([]*models.ValveRecord, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, header_id, valve_index, serial_number, brand, year_of_manufacture,
		 material_type, model, inlet_size, outlet_size, coefficient_discharge,
		 set_pressure, input_pressure, pop_pressure, reset_pressure,
		 COALESCE(pop_tolerance, ''), COALESCE(reset_tolerance, ''),
		 COALESCE(pop_result, ''), COALESCE(reset_result, ''), COALESCE(overall_result, ''),
		 created_at, updated_at
		 FROM pop_test_valves WHERE header_id=$1 ORDER BY valve_index`, headerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var valves []*models.ValveRecord
	for rows.Next() {
		var v models.ValveRecord
		err := rows.Scan(&v.ID, &v.HeaderID, &v.ValveIndex, &v.SerialNumber, &v.Brand,
			&v.YearOfManufacture, &v.MaterialType, &v.Model, &v.InletSize, &v.OutletSize,
			&v.CoefficientDischarge, &v.SetPressure, &v.InputPressure, &v.PopPressure,
			&v.ResetPressure, &v.PopTolerance, &v.ResetTolerance,
			&v.PopResult, &v.ResetResult, &v.OverallResult, &v.CreatedAt, &v.UpdatedAt)
		if err != nil {
			return nil, err
		}
		valves = append(valves, &v)
	}
	return valves, rows.Err()
}

// List returns summaries of POP test reports matching the filter, newest first
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]*models.ReportSummary, error) {
	where, args := buildHeaderFilter(filter)

	query := `SELECT h.id, h.report_number, h.operator_id, h.operator_name, h.company,
		 to_char(h.test_date, 'YYYY-MM-DD'), h.status, h.created_at,
		 h.equipment_no, h.ref_no,
		 COUNT(v.id),
		 COALESCE(string_agg(v.serial_number, ', ' ORDER BY v.valve_index), ''),
		 COALESCE(string_agg(v.overall_result, ', ' ORDER BY v.valve_index), '')
		 FROM pop_test_headers h
		 LEFT JOIN pop_test_valves v ON v.header_id = h.id` +
		where +
		` GROUP BY h.id ORDER BY h.created_at DESC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.ReportSummary
	for rows.Next() {
		s := models.ReportSummary{ReportType: models.ReportTypePOPTest}
		err := rows.Scan(&s.ID, &s.ReportNumber, &s.OperatorID, &s.OperatorName, &s.Company,
			&s.TestDate, &s.Status, &s.CreatedAt,
			&s.EquipmentNo, &s.RefNo, &s.ValveCount, &s.ValveSerials, &s.ValveResults)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func buildHeaderFilter(filter models.ReportFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("h.status=$%d", len(args)))
	}
	if filter.OperatorID > 0 {
		args = append(args, filter.OperatorID)
		conditions = append(conditions, fmt.Sprintf("h.operator_id=$%d", len(args)))
	}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("h.test_date >= $%d::date", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("h.test_date <= $%d::date", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(h.report_number ILIKE $%d OR h.equipment_no ILIKE $%d OR h.ref_no ILIKE $%d
			 OR h.operator_name ILIKE $%d
			 OR EXISTS (SELECT 1 FROM pop_test_valves sv WHERE sv.header_id = h.id AND sv.serial_number ILIKE $%d))`,
			n, n, n, n, n))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// UpdateStatus records an approve or reject decision on a header
func (r *ReportRepository) UpdateStatus(ctx context.Context, id int, status string, decidedBy int, rejectionReason string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE pop_test_headers
		 SET status=$1, approved_by=$2, approved_at=NOW(),
		 rejection_reason=NULLIF($3, ''), updated_at=CURRENT_TIMESTAMP
		 WHERE id=$4`,
		status, decidedBy, rejectionReason, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a header and its valves. Valves go first so the delete also
// works on databases created before the cascade constraint.
func (r *ReportRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM pop_test_valves WHERE header_id=$1`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM pop_test_headers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}

// LatestValveBySerial returns the most recently recorded test data for a
// serial number, used to auto-fill the form on retest.
func (r *ReportRepository) LatestValveBySerial(ctx context.Context, serialNumber string) (*models.ValveHistory, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT v.serial_number, v.brand, v.year_of_manufacture, v.material_type, v.model,
		 v.inlet_size, v.outlet_size, v.coefficient_discharge, v.set_pressure, v.input_pressure
		 FROM pop_test_valves v
		 JOIN pop_test_headers h ON h.id = v.header_id
		 WHERE v.serial_number=$1
		 ORDER BY h.created_at DESC, v.id DESC LIMIT 1`, serialNumber)

	var vh models.ValveHistory
	err := row.Scan(&vh.SerialNumber, &vh.Brand, &vh.YearOfManufacture, &vh.MaterialType,
		&vh.Model, &vh.InletSize, &vh.OutletSize, &vh.CoefficientDischarge,
		&vh.SetPressure, &vh.InputPressure)
	if err != nil {
		return nil, err
	}
	return &vh, nil
}

// Stats counts POP test headers by status and valves by overall result.
// operatorID 0 means all operators.
func (r *ReportRepository) Stats(ctx context.Context, operatorID int) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*),
		 COUNT(*) FILTER (WHERE status='pending'),
		 COUNT(*) FILTER (WHERE status='approved'),
		 COUNT(*) FILTER (WHERE status='rejected')
		 FROM pop_test_headers
		 WHERE ($1 = 0 OR operator_id = $1)`, operatorID,
	).Scan(&stats.Total, &stats.Pending, &stats.Approved, &stats.Rejected)
	if err != nil {
		return nil, err
	}

	err = r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE v.overall_result='Passed'),
		 COUNT(*) FILTER (WHERE v.overall_result='Failed')
		 FROM pop_test_valves v
		 JOIN pop_test_headers h ON h.id = v.header_id
		 WHERE ($1 = 0 OR h.operator_id = $1)`, operatorID,
	).Scan(&stats.Passed, &stats.Failed)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
