package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"valve-backend/internal/middleware"
	"valve-backend/internal/models"
	"valve-backend/internal/services"
	"valve-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// Create submits a new POP test report
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Service.CreateReport(r.Context(), caller, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, result)
}

// List returns both report shapes as one filtered list
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	filter := models.ReportFilter{
		Status:    q.Get("status"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Search:    q.Get("search"),
	}
	if v := q.Get("operator_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.OperatorID = id
		}
	}

	list, err := h.Service.ListReports(r.Context(), caller, filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*models.ReportSummary{}
	}
	utils.JSON(w, http.StatusOK, list)
}

// Get returns one report by id
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	detail, err := h.Service.GetReport(r.Context(), caller, id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, detail)
}

// DownloadPDF streams the report as a PDF certificate
func (h *ReportHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	detail, err := h.Service.GetReport(r.Context(), caller, id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	data, err := services.GenerateReportPDF(detail)
	if err != nil {
		utils.Fail(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}

	reportNumber := ""
	if detail.Legacy != nil {
		reportNumber = detail.Legacy.ReportNumber
	} else if detail.Header != nil {
		reportNumber = detail.Header.ReportNumber
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, reportNumber))
	w.Write(data)
}

// UpdateStatus approves or rejects a pending report
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	var req models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.SetStatus(r.Context(), caller, id, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": req.Status})
}

// Delete removes a pending report
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	if err := h.Service.DeleteReport(r.Context(), caller, id); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// UpdateLegacy amends a legacy report
func (h *ReportHandler) UpdateLegacy(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	var req models.UpdateLegacyReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.Service.UpdateLegacyReport(r.Context(), caller, id, &req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, updated)
}

// Stats returns the dashboard counters
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		utils.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := h.Service.Stats(r.Context(), caller)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}

// Preview computes valve verdicts for the live form without saving
func (h *ReportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var in models.ValveInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.Service.Preview(r.Context(), &in)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

// ValveHistory returns the latest recorded data for a serial number
func (h *ReportHandler) ValveHistory(w http.ResponseWriter, r *http.Request) {
	serial := mux.Vars(r)["serial"]

	vh, err := h.Service.ValveHistory(r.Context(), serial)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, vh)
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}
