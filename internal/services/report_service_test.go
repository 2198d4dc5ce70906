package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"valve-backend/internal/apperrors"
	"valve-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReportStore struct {
	nextID  int
	headers map[int]*models.ReportHeader
	valves  map[int][]*models.ValveRecord

	createCalls int
	createErr   error
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{
		nextID:  100,
		headers: make(map[int]*models.ReportHeader),
		valves:  make(map[int][]*models.ValveRecord),
	}
}

func (f *fakeReportStore) Create(ctx context.Context, h *models.ReportHeader, valves []*models.ValveRecord) error {
	f.createCalls++
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	f.nextID++
	h.ID = f.nextID
	h.Status = models.StatusPending
	h.CreatedAt = time.Now()
	for _, v := range valves {
		v.HeaderID = h.ID
	}
	f.headers[h.ID] = h
	f.valves[h.ID] = valves
	return nil
}

func (f *fakeReportStore) GetHeader(ctx context.Context, id int) (*models.ReportHeader, error) {
	h, ok := f.headers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return h, nil
}

func (f *fakeReportStore) GetValves(ctx context.Context, headerID int) ([]*models.ValveRecord, error) {
	return f.valves[headerID], nil
}

func (f *fakeReportStore) List(ctx context.Context, filter models.ReportFilter) ([]*models.ReportSummary, error) {
	var out []*models.ReportSummary
	for _, h := range f.headers {
		if filter.OperatorID > 0 && h.OperatorID != filter.OperatorID {
			continue
		}
		if filter.Status != "" && h.Status != filter.Status {
			continue
		}
		out = append(out, &models.ReportSummary{
			ID:         h.ID,
			ReportType: models.ReportTypePOPTest,
			OperatorID: h.OperatorID,
			Status:     h.Status,
			CreatedAt:  h.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReportStore) UpdateStatus(ctx context.Context, id int, status string, decidedBy int, reason string) error {
	h, ok := f.headers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	h.Status = status
	h.ApprovedBy = &decidedBy
	h.RejectionReason = reason
	return nil
}

func (f *fakeReportStore) Delete(ctx context.Context, id int) error {
	if _, ok := f.headers[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.headers, id)
	delete(f.valves, id)
	return nil
}

func (f *fakeReportStore) LatestValveBySerial(ctx context.Context, serial string) (*models.ValveHistory, error) {
	for _, valves := range f.valves {
		for _, v := range valves {
			if v.SerialNumber == serial {
				return &models.ValveHistory{SerialNumber: serial, Brand: v.Brand}, nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeReportStore) Stats(ctx context.Context, operatorID int) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	for _, h := range f.headers {
		if operatorID > 0 && h.OperatorID != operatorID {
			continue
		}
		stats.Total++
		switch h.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

type fakeLegacyStore struct {
	reports map[int]*models.LegacyReport
}

func newFakeLegacyStore() *fakeLegacyStore {
	return &fakeLegacyStore{reports: make(map[int]*models.LegacyReport)}
}

func (f *fakeLegacyStore) Get(ctx context.Context, id int) (*models.LegacyReport, error) {
	lr, ok := f.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return lr, nil
}

func (f *fakeLegacyStore) List(ctx context.Context, filter models.ReportFilter) ([]*models.ReportSummary, error) {
	var out []*models.ReportSummary
	for _, lr := range f.reports {
		if filter.OperatorID > 0 && lr.OperatorID != filter.OperatorID {
			continue
		}
		if filter.Status != "" && lr.Status != filter.Status {
			continue
		}
		out = append(out, &models.ReportSummary{
			ID:         lr.ID,
			ReportType: models.ReportTypeLegacy,
			OperatorID: lr.OperatorID,
			Status:     lr.Status,
			CreatedAt:  lr.CreatedAt,
		})
	}
	return out, nil
}

func (f *fakeLegacyStore) UpdateStatus(ctx context.Context, id int, status string, decidedBy int, reason string) error {
	lr, ok := f.reports[id]
	if !ok {
		return pgx.ErrNoRows
	}
	lr.Status = status
	lr.RejectionReason = reason
	return nil
}

func (f *fakeLegacyStore) Update(ctx context.Context, id int, req *models.UpdateLegacyReportRequest) error {
	lr, ok := f.reports[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if req.Remarks != nil {
		lr.Remarks = *req.Remarks
	}
	if req.TestResult != nil {
		lr.TestResult = *req.TestResult
	}
	return nil
}

func (f *fakeLegacyStore) Delete(ctx context.Context, id int) error {
	if _, ok := f.reports[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.reports, id)
	return nil
}

func (f *fakeLegacyStore) Stats(ctx context.Context, operatorID int) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	for _, lr := range f.reports {
		if operatorID > 0 && lr.OperatorID != operatorID {
			continue
		}
		stats.Total++
		if lr.Status == models.StatusPending {
			stats.Pending++
		}
	}
	return stats, nil
}

type fakePressureTable struct {
	pairs []models.SetPressurePair
}

func (f *fakePressureTable) ListSetPressures(ctx context.Context) ([]models.SetPressurePair, error) {
	return f.pairs, nil
}

func newTestService() (*ReportService, *fakeReportStore, *fakeLegacyStore) {
	reports := newFakeReportStore()
	legacy := newFakeLegacyStore()
	svc := NewReportService(reports, legacy, &fakePressureTable{
		pairs: []models.SetPressurePair{{SetPressure: 22.0, InputPressure: 23.0}},
	})
	return svc, reports, legacy
}

var (
	operator   = models.Caller{ID: 7, Name: "Tan Wei", Company: "KSE", Role: models.RoleOperator}
	supervisor = models.Caller{ID: 3, Name: "Lim Hui", Company: "KSE", Role: models.RoleSupervisor}
)

func validCreateRequest() *models.CreateReportRequest {
	return &models.CreateReportRequest{
		EquipmentNo: "AC-1042",
		RefNo:       "KSE-150124-01",
		TestDate:    "2024-01-15",
		Valves: []*models.ValveInput{
			{
				SerialNumber:         "SV-9001",
				Brand:                "Winter",
				Model:                "PFP-20",
				YearOfManufacture:    "2021",
				MaterialType:         "Stainless Steel",
				InletSize:            "1/2\"",
				OutletSize:           "3/4\"",
				CoefficientDischarge: "0.975",
				SetPressure:          22.0,
				PopPressure:          22.5,
				ResetPressure:        20.8,
			},
			{}, // untouched form slot
		},
	}
}

func TestCreateReportComputesValveResults(t *testing.T) {
	svc, reports, _ := newTestService()

	result, err := svc.CreateReport(context.Background(), operator, validCreateRequest())
	require.NoError(t, err)
	assert.NotZero(t, result.ReportID)
	assert.Regexp(t, `^RPT-\d+-7$`, result.ReportNumber)

	valves := reports.valves[result.ReportID]
	require.Len(t, valves, 1) // empty slot dropped
	v := valves[0]
	assert.Equal(t, 1, v.ValveIndex)
	assert.Equal(t, "2.3%", v.PopTolerance)
	assert.Equal(t, "Passed", v.PopResult)
	assert.Equal(t, "5.5%", v.ResetTolerance)
	assert.Equal(t, "Satisfactory", v.ResetResult)
	assert.Equal(t, "Passed", v.OverallResult)
	assert.Equal(t, 23.0, v.InputPressure) // from the reference table
}

func TestCreateReportOverridesClientVerdicts(t *testing.T) {
	svc, reports, _ := newTestService()

	req := validCreateRequest()
	req.Valves[0].PopPressure = 24.0 // 9.1% deviation

	result, err := svc.CreateReport(context.Background(), operator, req)
	require.NoError(t, err)

	v := reports.valves[result.ReportID][0]
	assert.Equal(t, "Failed", v.PopResult)
	assert.Equal(t, "Failed", v.OverallResult)
}

func TestCreateReportAppliesHeaderDefaults(t *testing.T) {
	svc, reports, _ := newTestService()

	result, err := svc.CreateReport(context.Background(), operator, validCreateRequest())
	require.NoError(t, err)

	h := reports.headers[result.ReportID]
	assert.Equal(t, "N2", h.TestMedium)
	assert.Equal(t, "(23±5)°C", h.AmbientTemp)
	assert.Equal(t, "Caltek Pte Ltd", h.CalibrateCompany)
	assert.Equal(t, "2026-07-15", h.NextTestDate) // 912 days after 2024-01-15
	assert.Equal(t, operator.ID, h.OperatorID)
	assert.Equal(t, operator.Name, h.OperatorName)
}

func TestCreateReportValidationWritesNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateReportRequest)
		field  string
	}{
		{"missing equipment", func(r *models.CreateReportRequest) { r.EquipmentNo = "" }, "equipment_no"},
		{"bad ref no", func(r *models.CreateReportRequest) { r.RefNo = "KSE-2024-1" }, "ref_no"},
		{"missing test date", func(r *models.CreateReportRequest) { r.TestDate = "" }, "test_date"},
		{"bad test date", func(r *models.CreateReportRequest) { r.TestDate = "15/01/2024" }, "test_date"},
		{"no valves", func(r *models.CreateReportRequest) { r.Valves = []*models.ValveInput{{}} }, "valves"},
		{"missing serial", func(r *models.CreateReportRequest) { r.Valves[0].SerialNumber = "" }, "serial_number"},
		{"missing model", func(r *models.CreateReportRequest) { r.Valves[0].Model = "" }, "model"},
		{"missing year", func(r *models.CreateReportRequest) { r.Valves[0].YearOfManufacture = "" }, "year_of_manufacture"},
		{"missing material", func(r *models.CreateReportRequest) { r.Valves[0].MaterialType = "" }, "material_type"},
		{"missing inlet size", func(r *models.CreateReportRequest) { r.Valves[0].InletSize = "" }, "inlet_size"},
		{"missing outlet size", func(r *models.CreateReportRequest) { r.Valves[0].OutletSize = "" }, "outlet_size"},
		{"missing coefficient", func(r *models.CreateReportRequest) { r.Valves[0].CoefficientDischarge = "" }, "coefficient_discharge"},
		{"zero set pressure", func(r *models.CreateReportRequest) { r.Valves[0].SetPressure = 0 }, "set_pressure"},
		{"zero pop pressure", func(r *models.CreateReportRequest) { r.Valves[0].PopPressure = 0 }, "pop_pressure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, reports, _ := newTestService()
			req := validCreateRequest()
			tt.mutate(req)

			_, err := svc.CreateReport(context.Background(), operator, req)

			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Zero(t, reports.createCalls, "no write may happen on validation failure")
		})
	}
}

func TestCreateReportNamesValveIndexInError(t *testing.T) {
	svc, reports, _ := newTestService()

	req := validCreateRequest()
	second := *req.Valves[0]
	second.SerialNumber = "SV-9002"
	second.MaterialType = ""
	req.Valves[1] = &second

	_, err := svc.CreateReport(context.Background(), operator, req)

	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 2, vErr.ValveIndex)
	assert.Equal(t, "material_type", vErr.Field)
	assert.Zero(t, reports.createCalls)
}

func TestCreateReportRejectsTooManyValves(t *testing.T) {
	svc, _, _ := newTestService()

	req := validCreateRequest()
	req.Valves = nil
	for i := 0; i < 6; i++ {
		req.Valves = append(req.Valves, &models.ValveInput{
			SerialNumber: "SV-900" + string(rune('0'+i)),
			Brand:        "Winter",
			SetPressure:  22.0,
			PopPressure:  22.5,
		})
	}

	_, err := svc.CreateReport(context.Background(), operator, req)
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "valves", vErr.Field)
}

func TestCreateReportRetriesReportNumberConflict(t *testing.T) {
	svc, reports, _ := newTestService()
	reports.createErr = apperrors.Conflict("report number already exists")

	result, err := svc.CreateReport(context.Background(), operator, validCreateRequest())
	require.NoError(t, err)
	assert.NotZero(t, result.ReportID)
	assert.Equal(t, 2, reports.createCalls)
}

func TestListReportsForcesOperatorScope(t *testing.T) {
	svc, reports, legacy := newTestService()
	now := time.Now()
	reports.headers[101] = &models.ReportHeader{ID: 101, OperatorID: 7, Status: "pending", CreatedAt: now}
	reports.headers[102] = &models.ReportHeader{ID: 102, OperatorID: 9, Status: "pending", CreatedAt: now}
	legacy.reports[5] = &models.LegacyReport{ID: 5, OperatorID: 9, Status: "approved", CreatedAt: now}

	// Operator asking for someone else's reports still gets their own
	list, err := svc.ListReports(context.Background(), operator, models.ReportFilter{OperatorID: 9})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 101, list[0].ID)

	// Supervisors see everything
	list, err = svc.ListReports(context.Background(), supervisor, models.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestListReportsMergesBothShapesNewestFirst(t *testing.T) {
	svc, reports, legacy := newTestService()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	legacy.reports[1] = &models.LegacyReport{ID: 1, OperatorID: 7, Status: "approved", CreatedAt: base}
	reports.headers[101] = &models.ReportHeader{ID: 101, OperatorID: 7, Status: "pending", CreatedAt: base.Add(2 * time.Hour)}
	legacy.reports[2] = &models.LegacyReport{ID: 2, OperatorID: 7, Status: "pending", CreatedAt: base.Add(time.Hour)}

	list, err := svc.ListReports(context.Background(), operator, models.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, models.ReportTypePOPTest, list[0].ReportType)
	assert.Equal(t, 101, list[0].ID)
	assert.Equal(t, models.ReportTypeLegacy, list[1].ReportType)
	assert.Equal(t, 2, list[1].ID)
	assert.Equal(t, 1, list[2].ID)
}

func TestGetReportResolvesLegacyFirst(t *testing.T) {
	svc, reports, legacy := newTestService()
	// Same numeric id exists in both shapes
	legacy.reports[42] = &models.LegacyReport{ID: 42, OperatorID: 7, Status: "approved"}
	reports.headers[42] = &models.ReportHeader{ID: 42, OperatorID: 7, Status: "pending"}

	detail, err := svc.GetReport(context.Background(), operator, 42)
	require.NoError(t, err)
	assert.Equal(t, models.ReportTypeLegacy, detail.ReportType)
	assert.NotNil(t, detail.Legacy)
	assert.Nil(t, detail.Header)
}

func TestGetReportOwnershipAndNotFound(t *testing.T) {
	svc, reports, _ := newTestService()
	reports.headers[50] = &models.ReportHeader{ID: 50, OperatorID: 9, Status: "pending"}

	_, err := svc.GetReport(context.Background(), operator, 50)
	var fErr *apperrors.ForbiddenError
	assert.ErrorAs(t, err, &fErr)

	// Supervisors can view any report
	_, err = svc.GetReport(context.Background(), supervisor, 50)
	assert.NoError(t, err)

	_, err = svc.GetReport(context.Background(), supervisor, 999)
	var nfErr *apperrors.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestSetStatusRoleAndTransitionRules(t *testing.T) {
	svc, reports, _ := newTestService()
	reports.headers[60] = &models.ReportHeader{ID: 60, OperatorID: 7, Status: "pending"}

	// Operators cannot decide
	err := svc.SetStatus(context.Background(), operator, 60, &models.StatusUpdateRequest{Status: "approved"})
	var fErr *apperrors.ForbiddenError
	assert.ErrorAs(t, err, &fErr)

	// Rejection requires a reason
	err = svc.SetStatus(context.Background(), supervisor, 60, &models.StatusUpdateRequest{Status: "rejected"})
	var vErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &vErr)

	// Approve works once
	err = svc.SetStatus(context.Background(), supervisor, 60, &models.StatusUpdateRequest{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, "approved", reports.headers[60].Status)
	require.NotNil(t, reports.headers[60].ApprovedBy)
	assert.Equal(t, supervisor.ID, *reports.headers[60].ApprovedBy)

	// Decisions are terminal
	err = svc.SetStatus(context.Background(), supervisor, 60, &models.StatusUpdateRequest{Status: "rejected", RejectionReason: "wrong gauge"})
	var cErr *apperrors.ConflictError
	assert.ErrorAs(t, err, &cErr)
	assert.Equal(t, "approved", reports.headers[60].Status)
}

func TestSetStatusRejectsLegacyReports(t *testing.T) {
	svc, _, legacy := newTestService()
	legacy.reports[8] = &models.LegacyReport{ID: 8, OperatorID: 7, Status: "pending"}

	err := svc.SetStatus(context.Background(), supervisor, 8, &models.StatusUpdateRequest{
		Status:          "rejected",
		RejectionReason: "incomplete readings",
	})
	require.NoError(t, err)
	assert.Equal(t, "rejected", legacy.reports[8].Status)
	assert.Equal(t, "incomplete readings", legacy.reports[8].RejectionReason)
}

func TestDeleteReportPolicy(t *testing.T) {
	svc, reports, _ := newTestService()
	reports.headers[70] = &models.ReportHeader{ID: 70, OperatorID: 9, Status: "pending"}
	reports.headers[71] = &models.ReportHeader{ID: 71, OperatorID: 7, Status: "approved"}
	reports.headers[72] = &models.ReportHeader{ID: 72, OperatorID: 7, Status: "pending"}

	// Not the owner
	err := svc.DeleteReport(context.Background(), operator, 70)
	var fErr *apperrors.ForbiddenError
	assert.ErrorAs(t, err, &fErr)

	// Decided reports are immutable, even for supervisors
	err = svc.DeleteReport(context.Background(), supervisor, 71)
	var cErr *apperrors.ConflictError
	assert.ErrorAs(t, err, &cErr)

	// Own pending report deletes fine
	err = svc.DeleteReport(context.Background(), operator, 72)
	require.NoError(t, err)
	assert.NotContains(t, reports.headers, 72)

	// Supervisors can delete other owners' pending reports
	err = svc.DeleteReport(context.Background(), supervisor, 70)
	require.NoError(t, err)
}

func TestUpdateLegacyReportRules(t *testing.T) {
	svc, _, legacy := newTestService()
	legacy.reports[20] = &models.LegacyReport{ID: 20, OperatorID: 7, Status: "pending"}
	legacy.reports[21] = &models.LegacyReport{ID: 21, OperatorID: 7, Status: "approved"}

	remarks := "retested after adjustment"
	updated, err := svc.UpdateLegacyReport(context.Background(), operator, 20, &models.UpdateLegacyReportRequest{Remarks: &remarks})
	require.NoError(t, err)
	assert.Equal(t, remarks, updated.Remarks)

	// Operators cannot amend decided reports
	_, err = svc.UpdateLegacyReport(context.Background(), operator, 21, &models.UpdateLegacyReportRequest{Remarks: &remarks})
	var cErr *apperrors.ConflictError
	assert.ErrorAs(t, err, &cErr)

	// Supervisors can
	_, err = svc.UpdateLegacyReport(context.Background(), supervisor, 21, &models.UpdateLegacyReportRequest{Remarks: &remarks})
	assert.NoError(t, err)

	bad := "inconclusive"
	_, err = svc.UpdateLegacyReport(context.Background(), supervisor, 20, &models.UpdateLegacyReportRequest{TestResult: &bad})
	var vErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestValveHistory(t *testing.T) {
	svc, reports, _ := newTestService()
	reports.valves[101] = []*models.ValveRecord{{SerialNumber: "SV-9001", Brand: "Winter"}}

	vh, err := svc.ValveHistory(context.Background(), "SV-9001")
	require.NoError(t, err)
	assert.Equal(t, "Winter", vh.Brand)

	_, err = svc.ValveHistory(context.Background(), "SV-0000")
	var nfErr *apperrors.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestStatsSumsBothShapes(t *testing.T) {
	svc, reports, legacy := newTestService()
	reports.headers[101] = &models.ReportHeader{ID: 101, OperatorID: 7, Status: "pending"}
	reports.headers[102] = &models.ReportHeader{ID: 102, OperatorID: 9, Status: "approved"}
	legacy.reports[1] = &models.LegacyReport{ID: 1, OperatorID: 7, Status: "pending"}

	stats, err := svc.Stats(context.Background(), supervisor)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)

	stats, err = svc.Stats(context.Background(), operator)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Pending)
}

func TestPreviewComputesWithoutPersisting(t *testing.T) {
	svc, reports, _ := newTestService()

	rec, err := svc.Preview(context.Background(), &models.ValveInput{
		SetPressure:   20.0,
		PopPressure:   20.5,
		ResetPressure: 18.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "2.5%", rec.PopTolerance)
	assert.Equal(t, "Passed", rec.PopResult)
	assert.Equal(t, "Satisfactory", rec.ResetResult)
	assert.Equal(t, "Passed", rec.OverallResult)
	assert.Equal(t, 21.0, rec.InputPressure) // fallback: set + 1.0
	assert.Zero(t, reports.createCalls)
}
