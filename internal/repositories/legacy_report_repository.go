package repositories

import (
	"context"
	"fmt"
	"strings"

	"valve-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LegacyReportRepository reads the pre-split single-table report shape.
// Legacy reports are never created anymore, only read, reviewed and amended.
type LegacyReportRepository struct {
	DB *pgxpool.Pool
}

func NewLegacyReportRepository(db *pgxpool.Pool) *LegacyReportRepository {
	return &LegacyReportRepository{DB: db}
}

func (r *LegacyReportRepository) Get(ctx context.Context, id int) (*models.LegacyReport, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, report_number, operator_id, operator_name, company,
		 COALESCE(valve_tag_number, ''), COALESCE(valve_manufacturer, ''),
		 COALESCE(valve_model, ''), COALESCE(valve_size, ''), COALESCE(valve_type, ''),
		 set_pressure, COALESCE(set_pressure_unit, ''),
		 to_char(test_date, 'YYYY-MM-DD'), COALESCE(test_location, ''),
		 COALESCE(test_medium, ''), test_temperature, COALESCE(test_temperature_unit, ''),
		 opening_pressure, closing_pressure, COALESCE(seat_tightness, ''),
		 COALESCE(test_result, ''), COALESCE(remarks, ''),
		 status, approved_by, approved_at, COALESCE(rejection_reason, ''),
		 created_at, updated_at
		 FROM test_reports WHERE id=$1`, id)

	var lr models.LegacyReport
	err := row.Scan(&lr.ID, &lr.ReportNumber, &lr.OperatorID, &lr.OperatorName, &lr.Company,
		&lr.ValveTagNumber, &lr.ValveManufacturer, &lr.ValveModel, &lr.ValveSize, &lr.ValveType,
		&lr.SetPressure, &lr.SetPressureUnit,
		&lr.TestDate, &lr.TestLocation, &lr.TestMedium, &lr.TestTemperature, &lr.TestTemperatureUnit,
		&lr.OpeningPressure, &lr.ClosingPressure, &lr.SeatTightness,
		&lr.TestResult, &lr.Remarks,
		&lr.Status, &lr.ApprovedBy, &lr.ApprovedAt, &lr.RejectionReason,
		&lr.CreatedAt, &lr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

// List returns legacy report summaries matching the filter, newest first
func (r *LegacyReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]*models.ReportSummary, error) {
	where, args := buildLegacyFilter(filter)

	query := `SELECT id, report_number, operator_id, operator_name, company,
		 to_char(test_date, 'YYYY-MM-DD'), status, created_at,
		 COALESCE(valve_tag_number, ''), COALESCE(valve_manufacturer, ''), COALESCE(test_result, '')
		 FROM test_reports` +
		where +
		` ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.ReportSummary
	for rows.Next() {
		s := models.ReportSummary{ReportType: models.ReportTypeLegacy}
		err := rows.Scan(&s.ID, &s.ReportNumber, &s.OperatorID, &s.OperatorName, &s.Company,
			&s.TestDate, &s.Status, &s.CreatedAt,
			&s.ValveTagNumber, &s.ValveManufacturer, &s.TestResult)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func buildLegacyFilter(filter models.ReportFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.OperatorID > 0 {
		args = append(args, filter.OperatorID)
		conditions = append(conditions, fmt.Sprintf("operator_id=$%d", len(args)))
	}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("test_date >= $%d::date", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("test_date <= $%d::date", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(report_number ILIKE $%d OR valve_tag_number ILIKE $%d
			 OR valve_manufacturer ILIKE $%d OR operator_name ILIKE $%d)`,
			n, n, n, n))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// UpdateStatus records an approve or reject decision on a legacy report
func (r *LegacyReportRepository) UpdateStatus(ctx context.Context, id int, status string, decidedBy int, rejectionReason string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE test_reports
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

// Update applies a partial amendment built from the non-nil request fields
func (r *LegacyReportRepository) Update(ctx context.Context, id int, req *models.UpdateLegacyReportRequest) error {
	var sets []string
	var args []interface{}

	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if req.ValveTagNumber != nil {
		set("valve_tag_number", *req.ValveTagNumber)
	}
	if req.ValveManufacturer != nil {
		set("valve_manufacturer", *req.ValveManufacturer)
	}
	if req.ValveModel != nil {
		set("valve_model", *req.ValveModel)
	}
	if req.ValveSize != nil {
		set("valve_size", *req.ValveSize)
	}
	if req.ValveType != nil {
		set("valve_type", *req.ValveType)
	}
	if req.SetPressure != nil {
		set("set_pressure", *req.SetPressure)
	}
	if req.SetPressureUnit != nil {
		set("set_pressure_unit", *req.SetPressureUnit)
	}
	if req.TestDate != nil {
		args = append(args, *req.TestDate)
		sets = append(sets, fmt.Sprintf("test_date=$%d::date", len(args)))
	}
	if req.TestLocation != nil {
		set("test_location", *req.TestLocation)
	}
	if req.TestMedium != nil {
		set("test_medium", *req.TestMedium)
	}
	if req.TestTemperature != nil {
		set("test_temperature", *req.TestTemperature)
	}
	if req.TestTemperatureUnit != nil {
		set("test_temperature_unit", *req.TestTemperatureUnit)
	}
	if req.OpeningPressure != nil {
		set("opening_pressure", *req.OpeningPressure)
	}
	if req.ClosingPressure != nil {
		set("closing_pressure", *req.ClosingPressure)
	}
	if req.SeatTightness != nil {
		set("seat_tightness", *req.SeatTightness)
	}
	if req.TestResult != nil {
		set("test_result", *req.TestResult)
	}
	if req.Remarks != nil {
		set("remarks", *req.Remarks)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at=CURRENT_TIMESTAMP")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE test_reports SET %s WHERE id=$%d`,
		strings.Join(sets, ", "), len(args))

	tag, err := r.DB.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a legacy report
func (r *LegacyReportRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM test_reports WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Stats counts legacy reports by status and test result. operatorID 0 means
// all operators.
func (r *LegacyReportRepository) Stats(ctx context.Context, operatorID int) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*),
		 COUNT(*) FILTER (WHERE status='pending'),
		 COUNT(*) FILTER (WHERE status='approved'),
		 COUNT(*) FILTER (WHERE status='rejected'),
		 COUNT(*) FILTER (WHERE test_result='pass'),
		 COUNT(*) FILTER (WHERE test_result='fail')
		 FROM test_reports
		 WHERE ($1 = 0 OR operator_id = $1)`, operatorID,
	).Scan(&stats.Total, &stats.Pending, &stats.Approved, &stats.Rejected,
		&stats.Passed, &stats.Failed)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
