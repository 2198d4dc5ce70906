package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"valve-backend/internal/apperrors"
	"valve-backend/internal/metrics"
	"valve-backend/internal/models"
	"valve-backend/internal/timeutil"
	"valve-backend/internal/valvetest"

	"github.com/jackc/pgx/v5"
)

// Header defaults applied when the form leaves a field blank. These mirror
// the workshop's standing calibration setup.
const (
	defaultTestMedium       = "N2"
	defaultAmbientTemp      = "(23±5)°C"
	defaultMasterGauge      = "22024750"
	defaultCalibrationCert  = "CMS-5009-24"
	defaultRange            = "(0~600) psi"
	defaultMakeModel        = "Winter/PFP"
	defaultCalibrateCompany = "Caltek Pte Ltd"
)

const maxValvesPerReport = 5

// ReportStore persists the header/valves report shape
type ReportStore interface {
	Create(ctx context.Context, h *models.ReportHeader, valves []*models.ValveRecord) error
	GetHeader(ctx context.Context, id int) (*models.ReportHeader, error)
	GetValves(ctx context.Context, headerID int) ([]*models.ValveRecord, error)
	List(ctx context.Context, filter models.ReportFilter) ([]*models.ReportSummary, error)
	UpdateStatus(ctx context.Context, id int, status string, decidedBy int, rejectionReason string) error
	Delete(ctx context.Context, id int) error
	LatestValveBySerial(ctx context.Context, serialNumber string) (*models.ValveHistory, error)
	Stats(ctx context.Context, operatorID int) (*models.DashboardStats, error)
}

// LegacyStore reads and amends the pre-split report shape
type LegacyStore interface {
	Get(ctx context.Context, id int) (*models.LegacyReport, error)
	List(ctx context.Context, filter models.ReportFilter) ([]*models.ReportSummary, error)
	UpdateStatus(ctx context.Context, id int, status string, decidedBy int, rejectionReason string) error
	Update(ctx context.Context, id int, req *models.UpdateLegacyReportRequest) error
	Delete(ctx context.Context, id int) error
	Stats(ctx context.Context, operatorID int) (*models.DashboardStats, error)
}

// PressureTable supplies the set/input pressure reference pairs
type PressureTable interface {
	ListSetPressures(ctx context.Context) ([]models.SetPressurePair, error)
}

// Archiver copies an approved report to long-term storage
type Archiver interface {
	ArchiveReport(ctx context.Context, detail *models.ReportDetail)
}

// ReportService is the single entry point for all report reads and writes.
// It presents legacy and POP test reports as one collection and owns the
// role rules; handlers never touch the stores directly.
type ReportService struct {
	Reports  ReportStore
	Legacy   LegacyStore
	Pressure PressureTable
	Archive  Archiver // optional

	nowFn func() time.Time
}

func NewReportService(reports ReportStore, legacy LegacyStore, pressure PressureTable) *ReportService {
	return &ReportService{
		Reports:  reports,
		Legacy:   legacy,
		Pressure: pressure,
		nowFn:    timeutil.Now,
	}
}

// SetArchiver enables best-effort archiving of approved reports
func (s *ReportService) SetArchiver(a Archiver) {
	s.Archive = a
}

// CreateReport validates the submission, recomputes every valve verdict
// server-side and stores the header with its valves in one transaction.
// Validation runs in full before anything is written.
func (s *ReportService) CreateReport(ctx context.Context, caller models.Caller, req *models.CreateReportRequest) (*models.CreateReportResult, error) {
	if req.EquipmentNo == "" {
		return nil, apperrors.Validation("equipment_no", "equipment number is required")
	}
	if req.RefNo == "" {
		return nil, apperrors.Validation("ref_no", "reference number is required")
	}
	if !valvetest.ValidRefNo(req.RefNo) {
		return nil, apperrors.Validation("ref_no", "reference number must match KSE-DDMMYY-NN")
	}
	if req.TestDate == "" {
		return nil, apperrors.Validation("test_date", "test date is required")
	}
	testDate, err := timeutil.ParseDate(req.TestDate)
	if err != nil {
		return nil, apperrors.Validation("test_date", "test date must be YYYY-MM-DD")
	}
	if req.GaugeDueDate != "" {
		if _, err := timeutil.ParseDate(req.GaugeDueDate); err != nil {
			return nil, apperrors.Validation("gauge_due_date", "gauge due date must be YYYY-MM-DD")
		}
	}

	// Untouched form slots are dropped, not rejected
	var inputs []*models.ValveInput
	for _, v := range req.Valves {
		if v != nil && !v.Empty() {
			inputs = append(inputs, v)
		}
	}
	if len(inputs) == 0 {
		return nil, apperrors.Validation("valves", "at least one valve is required")
	}
	if len(inputs) > maxValvesPerReport {
		return nil, apperrors.Validation("valves", fmt.Sprintf("at most %d valves per report", maxValvesPerReport))
	}

	for i, v := range inputs {
		idx := i + 1
		if v.SerialNumber == "" {
			return nil, apperrors.ValveValidation(idx, "serial_number", "serial number is required")
		}
		if v.Brand == "" {
			return nil, apperrors.ValveValidation(idx, "brand", "brand is required")
		}
		if v.Model == "" {
			return nil, apperrors.ValveValidation(idx, "model", "model is required")
		}
		if v.YearOfManufacture == "" {
			return nil, apperrors.ValveValidation(idx, "year_of_manufacture", "year of manufacture is required")
		}
		if v.MaterialType == "" {
			return nil, apperrors.ValveValidation(idx, "material_type", "material type is required")
		}
		if v.InletSize == "" {
			return nil, apperrors.ValveValidation(idx, "inlet_size", "inlet size is required")
		}
		if v.OutletSize == "" {
			return nil, apperrors.ValveValidation(idx, "outlet_size", "outlet size is required")
		}
		if v.CoefficientDischarge == "" {
			return nil, apperrors.ValveValidation(idx, "coefficient_discharge", "coefficient of discharge is required")
		}
		if v.SetPressure <= 0 {
			return nil, apperrors.ValveValidation(idx, "set_pressure", "set pressure must be positive")
		}
		if v.PopPressure <= 0 {
			return nil, apperrors.ValveValidation(idx, "pop_pressure", "pop pressure must be positive")
		}
		if v.ResetPressure < 0 {
			return nil, apperrors.ValveValidation(idx, "reset_pressure", "reset pressure cannot be negative")
		}
	}

	table, err := s.pressureTable(ctx)
	if err != nil {
		return nil, apperrors.Store("load pressure table", err)
	}

	valves := make([]*models.ValveRecord, 0, len(inputs))
	for i, in := range inputs {
		inputPressure := in.InputPressure
		if inputPressure <= 0 {
			inputPressure = valvetest.InputPressure(in.SetPressure, table)
		}

		res := valvetest.ComputeResult(in.SetPressure, in.PopPressure, in.ResetPressure)
		valves = append(valves, &models.ValveRecord{
			ValveIndex:           i + 1,
			SerialNumber:         in.SerialNumber,
			Brand:                in.Brand,
			YearOfManufacture:    in.YearOfManufacture,
			MaterialType:         in.MaterialType,
			Model:                in.Model,
			InletSize:            in.InletSize,
			OutletSize:           in.OutletSize,
			CoefficientDischarge: in.CoefficientDischarge,
			SetPressure:          in.SetPressure,
			InputPressure:        inputPressure,
			PopPressure:          in.PopPressure,
			ResetPressure:        in.ResetPressure,
			PopTolerance:         res.PopTolerance,
			ResetTolerance:       res.ResetTolerance,
			PopResult:            res.PopResult,
			ResetResult:          res.ResetResult,
			OverallResult:        res.OverallResult,
		})
	}

	header := &models.ReportHeader{
		OperatorID:          caller.ID,
		OperatorName:        caller.Name,
		Company:             caller.Company,
		EquipmentNo:         req.EquipmentNo,
		RefNo:               req.RefNo,
		TestMedium:          orDefault(req.TestMedium, defaultTestMedium),
		AmbientTemp:         orDefault(req.AmbientTemp, defaultAmbientTemp),
		TestDate:            req.TestDate,
		NextTestDate:        timeutil.FormatDate(valvetest.NextTestDate(testDate)),
		MasterPressureGauge: orDefault(req.MasterPressureGauge, defaultMasterGauge),
		CalibrationCert:     orDefault(req.CalibrationCert, defaultCalibrationCert),
		GaugeDueDate:        req.GaugeDueDate,
		Range:               orDefault(req.Range, defaultRange),
		MakeModel:           orDefault(req.MakeModel, defaultMakeModel),
		CalibrateCompany:    orDefault(req.CalibrateCompany, defaultCalibrateCompany),
		Remarks:             req.Remarks,
	}

	// Millisecond timestamps collide only when the same operator submits
	// twice in the same instant, so one retry is enough
	for attempt := 0; ; attempt++ {
		header.ReportNumber = fmt.Sprintf("RPT-%d-%d", s.nowFn().UnixMilli(), caller.ID)
		err = s.Reports.Create(ctx, header, valves)
		if err == nil {
			break
		}
		var conflict *apperrors.ConflictError
		if errors.As(err, &conflict) && attempt == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, apperrors.Store("create report", err)
	}

	metrics.ReportsCreatedTotal.Inc()
	return &models.CreateReportResult{ReportID: header.ID, ReportNumber: header.ReportNumber}, nil
}

// ListReports returns both report shapes as one list, newest first.
// Operators only ever see their own reports regardless of the filter.
func (s *ReportService) ListReports(ctx context.Context, caller models.Caller, filter models.ReportFilter) ([]*models.ReportSummary, error) {
	if caller.IsOperator() {
		filter.OperatorID = caller.ID
	}

	legacy, err := s.Legacy.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Store("list legacy reports", err)
	}
	popTests, err := s.Reports.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Store("list reports", err)
	}

	merged := append(legacy, popTests...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// GetReport resolves an id against the legacy table first, then the POP test
// tables. The two id spaces overlap, so resolution order is part of the API.
func (s *ReportService) GetReport(ctx context.Context, caller models.Caller, id int) (*models.ReportDetail, error) {
	detail, err := s.findReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.IsOperator() && detail.operatorID != caller.ID {
		return nil, apperrors.Forbidden("you can only view your own reports")
	}
	return detail.ReportDetail, nil
}

type resolvedReport struct {
	*models.ReportDetail
	operatorID int
	status     string
}

func (s *ReportService) findReport(ctx context.Context, id int) (*resolvedReport, error) {
	legacy, err := s.Legacy.Get(ctx, id)
	if err == nil {
		return &resolvedReport{
			ReportDetail: &models.ReportDetail{ReportType: models.ReportTypeLegacy, Legacy: legacy},
			operatorID:   legacy.OperatorID,
			status:       legacy.Status,
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Store("get legacy report", err)
	}

	header, err := s.Reports.GetHeader(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("report")
	}
	if err != nil {
		return nil, apperrors.Store("get report", err)
	}
	valves, err := s.Reports.GetValves(ctx, id)
	if err != nil {
		return nil, apperrors.Store("get report valves", err)
	}

	return &resolvedReport{
		ReportDetail: &models.ReportDetail{ReportType: models.ReportTypePOPTest, Header: header, Valves: valves},
		operatorID:   header.OperatorID,
		status:       header.Status,
	}, nil
}

// SetStatus approves or rejects a pending report. Decisions are terminal;
// re-deciding an already decided report is a conflict, not an overwrite.
func (s *ReportService) SetStatus(ctx context.Context, caller models.Caller, id int, req *models.StatusUpdateRequest) error {
	if caller.IsOperator() {
		return apperrors.Forbidden("operators cannot approve or reject reports")
	}
	if req.Status != models.StatusApproved && req.Status != models.StatusRejected {
		return apperrors.Validation("status", "status must be approved or rejected")
	}
	if req.Status == models.StatusRejected && req.RejectionReason == "" {
		return apperrors.Validation("rejection_reason", "rejection reason is required")
	}

	detail, err := s.findReport(ctx, id)
	if err != nil {
		return err
	}
	if detail.status != models.StatusPending {
		return apperrors.Conflict("report is already " + detail.status)
	}

	if detail.ReportType == models.ReportTypeLegacy {
		err = s.Legacy.UpdateStatus(ctx, id, req.Status, caller.ID, req.RejectionReason)
	} else {
		err = s.Reports.UpdateStatus(ctx, id, req.Status, caller.ID, req.RejectionReason)
	}
	if err != nil {
		return apperrors.Store("update report status", err)
	}

	metrics.ReportStatusTransitions.WithLabelValues(req.Status).Inc()

	if req.Status == models.StatusApproved && s.Archive != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			detail, err := s.findReport(ctx, id)
			if err != nil {
				log.Printf("[Archive] reload report %d: %v", id, err)
				return
			}
			s.Archive.ArchiveReport(ctx, detail.ReportDetail)
		}()
	}

	return nil
}

// DeleteReport removes a pending report. Operators can only delete their own;
// decided reports are immutable for everyone.
func (s *ReportService) DeleteReport(ctx context.Context, caller models.Caller, id int) error {
	detail, err := s.findReport(ctx, id)
	if err != nil {
		return err
	}
	if caller.IsOperator() && detail.operatorID != caller.ID {
		return apperrors.Forbidden("you can only delete your own reports")
	}
	if detail.status != models.StatusPending {
		return apperrors.Conflict("only pending reports can be deleted")
	}

	if detail.ReportType == models.ReportTypeLegacy {
		err = s.Legacy.Delete(ctx, id)
	} else {
		err = s.Reports.Delete(ctx, id)
	}
	if err != nil {
		return apperrors.Store("delete report", err)
	}
	return nil
}

// UpdateLegacyReport amends fields on a legacy report. Operators can amend
// their own pending reports; supervisors and admins can amend any.
func (s *ReportService) UpdateLegacyReport(ctx context.Context, caller models.Caller, id int, req *models.UpdateLegacyReportRequest) (*models.LegacyReport, error) {
	legacy, err := s.Legacy.Get(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("report")
	}
	if err != nil {
		return nil, apperrors.Store("get legacy report", err)
	}

	if caller.IsOperator() {
		if legacy.OperatorID != caller.ID {
			return nil, apperrors.Forbidden("you can only edit your own reports")
		}
		if legacy.Status != models.StatusPending {
			return nil, apperrors.Conflict("only pending reports can be edited")
		}
	}

	if req.TestResult != nil {
		switch *req.TestResult {
		case "pass", "fail", "conditional":
		default:
			return nil, apperrors.Validation("test_result", "test result must be pass, fail or conditional")
		}
	}
	if req.TestDate != nil {
		if _, err := timeutil.ParseDate(*req.TestDate); err != nil {
			return nil, apperrors.Validation("test_date", "test date must be YYYY-MM-DD")
		}
	}

	if err := s.Legacy.Update(ctx, id, req); err != nil {
		return nil, apperrors.Store("update legacy report", err)
	}

	updated, err := s.Legacy.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Store("get legacy report", err)
	}
	return updated, nil
}

// ValveHistory returns the latest recorded data for a serial number
func (s *ReportService) ValveHistory(ctx context.Context, serialNumber string) (*models.ValveHistory, error) {
	if serialNumber == "" {
		return nil, apperrors.Validation("serial_number", "serial number is required")
	}
	vh, err := s.Reports.LatestValveBySerial(ctx, serialNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("valve history")
	}
	if err != nil {
		return nil, apperrors.Store("get valve history", err)
	}
	return vh, nil
}

// Stats aggregates dashboard counts over both report shapes. Operators see
// their own numbers only.
func (s *ReportService) Stats(ctx context.Context, caller models.Caller) (*models.DashboardStats, error) {
	operatorID := 0
	if caller.IsOperator() {
		operatorID = caller.ID
	}

	legacy, err := s.Legacy.Stats(ctx, operatorID)
	if err != nil {
		return nil, apperrors.Store("legacy report stats", err)
	}
	popTests, err := s.Reports.Stats(ctx, operatorID)
	if err != nil {
		return nil, apperrors.Store("report stats", err)
	}

	return &models.DashboardStats{
		Total:    legacy.Total + popTests.Total,
		Pending:  legacy.Pending + popTests.Pending,
		Approved: legacy.Approved + popTests.Approved,
		Rejected: legacy.Rejected + popTests.Rejected,
		Passed:   legacy.Passed + popTests.Passed,
		Failed:   legacy.Failed + popTests.Failed,
	}, nil
}

// Preview computes valve verdicts without persisting anything, for the live
// form preview.
func (s *ReportService) Preview(ctx context.Context, in *models.ValveInput) (*models.ValveRecord, error) {
	if in.SetPressure <= 0 {
		return nil, apperrors.Validation("set_pressure", "set pressure must be positive")
	}

	table, err := s.pressureTable(ctx)
	if err != nil {
		return nil, apperrors.Store("load pressure table", err)
	}

	inputPressure := in.InputPressure
	if inputPressure <= 0 {
		inputPressure = valvetest.InputPressure(in.SetPressure, table)
	}

	res := valvetest.ComputeResult(in.SetPressure, in.PopPressure, in.ResetPressure)
	return &models.ValveRecord{
		SerialNumber:   in.SerialNumber,
		SetPressure:    in.SetPressure,
		InputPressure:  inputPressure,
		PopPressure:    in.PopPressure,
		ResetPressure:  in.ResetPressure,
		PopTolerance:   res.PopTolerance,
		ResetTolerance: res.ResetTolerance,
		PopResult:      res.PopResult,
		ResetResult:    res.ResetResult,
		OverallResult:  res.OverallResult,
	}, nil
}

func (s *ReportService) pressureTable(ctx context.Context) ([]valvetest.PressurePair, error) {
	if s.Pressure == nil {
		return nil, nil
	}
	pairs, err := s.Pressure.ListSetPressures(ctx)
	if err != nil {
		return nil, err
	}
	table := make([]valvetest.PressurePair, 0, len(pairs))
	for _, p := range pairs {
		table = append(table, valvetest.PressurePair{Set: p.SetPressure, Input: p.InputPressure})
	}
	return table, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
