package services

import (
	"bytes"
	"fmt"

	"valve-backend/internal/models"
	"valve-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// GenerateReportPDF renders a report as a printable test certificate.
// Both storage shapes are supported; the archive and the download endpoint
// share this renderer.
func GenerateReportPDF(detail *models.ReportDetail) ([]byte, error) {
	if detail.ReportType == models.ReportTypeLegacy {
		return generateLegacyPDF(detail.Legacy)
	}
	return generatePOPTestPDF(detail.Header, detail.Valves)
}

func generatePOPTestPDF(h *models.ReportHeader, valves []*models.ValveRecord) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "") // Landscape for the valve columns
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(277, 10, "Pressure Safety Valve POP Test Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, fmt.Sprintf("Report No: %s    Generated: %s",
		h.ReportNumber, timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Test Information Box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(277, 8, "Test Information", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	info := [][2]string{
		{fmt.Sprintf("Equipment No: %s", h.EquipmentNo), fmt.Sprintf("Ref No: %s", h.RefNo)},
		{fmt.Sprintf("Test Date: %s", h.TestDate), fmt.Sprintf("Next Test Date: %s", h.NextTestDate)},
		{fmt.Sprintf("Test Medium: %s", h.TestMedium), fmt.Sprintf("Ambient Temp: %s", h.AmbientTemp)},
		{fmt.Sprintf("Master Gauge: %s (%s)", h.MasterPressureGauge, h.Range), fmt.Sprintf("Calibration Cert: %s", h.CalibrationCert)},
		{fmt.Sprintf("Gauge Make/Model: %s", h.MakeModel), fmt.Sprintf("Calibrated By: %s", h.CalibrateCompany)},
		{fmt.Sprintf("Operator: %s", h.OperatorName), fmt.Sprintf("Company: %s", h.Company)},
	}
	for _, row := range info {
		pdf.CellFormat(138, 7, row[0], "LB", 0, "L", false, 0, "")
		pdf.CellFormat(139, 7, row[1], "RB", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Valve results table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(277, 8, "Valve Test Results", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(12, 7, "SV", "1", 0, "C", true, 0, "")
	pdf.CellFormat(32, 7, "Serial No", "1", 0, "C", true, 0, "")
	pdf.CellFormat(26, 7, "Brand", "1", 0, "C", true, 0, "")
	pdf.CellFormat(26, 7, "Model", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 7, "Set (Bar)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 7, "Input (Bar)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 7, "Pop (Bar)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 7, "Reset (Bar)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Pop Tol", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Reset Tol", "1", 0, "C", true, 0, "")
	pdf.CellFormat(26, 7, "Pop Result", "1", 0, "C", true, 0, "")
	pdf.CellFormat(27, 7, "Overall", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, v := range valves {
		pdf.CellFormat(12, 6, fmt.Sprintf("%d", v.ValveIndex), "1", 0, "C", false, 0, "")
		pdf.CellFormat(32, 6, v.SerialNumber, "1", 0, "C", false, 0, "")
		pdf.CellFormat(26, 6, truncate(v.Brand, 14), "1", 0, "C", false, 0, "")
		pdf.CellFormat(26, 6, truncate(v.Model, 14), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, fmt.Sprintf("%.1f", v.SetPressure), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, fmt.Sprintf("%.1f", v.InputPressure), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, fmt.Sprintf("%.1f", v.PopPressure), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, fmt.Sprintf("%.1f", v.ResetPressure), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, v.PopTolerance, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, v.ResetTolerance, "1", 0, "C", false, 0, "")
		pdf.CellFormat(26, 6, v.PopResult, "1", 0, "C", false, 0, "")
		pdf.CellFormat(27, 6, v.OverallResult, "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	// Status banner
	switch h.Status {
	case models.StatusApproved:
		pdf.SetFillColor(200, 255, 200)
	case models.StatusRejected:
		pdf.SetFillColor(255, 200, 200)
	default:
		pdf.SetFillColor(255, 245, 200)
	}
	pdf.SetFont("Arial", "B", 12)
	statusText := fmt.Sprintf("Status: %s", h.Status)
	if h.Status == models.StatusRejected && h.RejectionReason != "" {
		statusText += fmt.Sprintf(" (%s)", h.RejectionReason)
	}
	pdf.CellFormat(277, 9, statusText, "1", 1, "C", true, 0, "")

	if h.Remarks != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(277, 6, fmt.Sprintf("Remarks: %s", h.Remarks), "1", "L", false)
	}

	return pdfBytes(pdf)
}

func generateLegacyPDF(lr *models.LegacyReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Pressure Safety Valve Test Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Report No: %s    Generated: %s",
		lr.ReportNumber, timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Valve Information", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Tag No: %s", lr.ValveTagNumber), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Manufacturer: %s", lr.ValveManufacturer), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Model: %s", lr.ValveModel), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Size / Type: %s %s", lr.ValveSize, lr.ValveType), "RB", 1, "L", false, 0, "")
	if lr.SetPressure != nil {
		pdf.CellFormat(190, 7, fmt.Sprintf("Set Pressure: %.2f %s", *lr.SetPressure, lr.SetPressureUnit), "LRB", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Test Results", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Test Date: %s", lr.TestDate), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Location: %s", lr.TestLocation), "RB", 1, "L", false, 0, "")
	opening, closing := "-", "-"
	if lr.OpeningPressure != nil {
		opening = fmt.Sprintf("%.2f", *lr.OpeningPressure)
	}
	if lr.ClosingPressure != nil {
		closing = fmt.Sprintf("%.2f", *lr.ClosingPressure)
	}
	pdf.CellFormat(95, 7, fmt.Sprintf("Opening Pressure: %s", opening), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Closing Pressure: %s", closing), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Seat Tightness: %s", lr.SeatTightness), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Operator: %s", lr.OperatorName), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	if lr.TestResult == "pass" {
		pdf.SetFillColor(200, 255, 200)
	} else {
		pdf.SetFillColor(255, 200, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, fmt.Sprintf("Result: %s    Status: %s", lr.TestResult, lr.Status), "1", 1, "C", true, 0, "")

	if lr.Remarks != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(190, 6, fmt.Sprintf("Remarks: %s", lr.Remarks), "1", "L", false)
	}

	return pdfBytes(pdf)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

func pdfBytes(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
