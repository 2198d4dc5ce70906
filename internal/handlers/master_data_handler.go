package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"valve-backend/internal/models"
	"valve-backend/internal/services"
	"valve-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// MasterDataHandler serves the report form catalogs. Any authenticated user
// can read and add entries; the form's "Other" option posts new values here
// before submitting the report.
type MasterDataHandler struct {
	Service *services.MasterDataService
}

func NewMasterDataHandler(service *services.MasterDataService) *MasterDataHandler {
	return &MasterDataHandler{Service: service}
}

func (h *MasterDataHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.Service.ListBrands(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if brands == nil {
		brands = []*models.ValveBrand{}
	}
	utils.JSON(w, http.StatusOK, brands)
}

func (h *MasterDataHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	brand, err := h.Service.CreateBrand(r.Context(), req.Name)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, brand)
}

func (h *MasterDataHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	brandID := 0
	if v := r.URL.Query().Get("brand_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			brandID = id
		}
	}

	result, err := h.Service.ListModels(r.Context(), brandID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if result == nil {
		result = []*models.ValveModel{}
	}
	utils.JSON(w, http.StatusOK, result)
}

func (h *MasterDataHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		BrandID *int   `json:"brand_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	model, err := h.Service.CreateModel(r.Context(), req.Name, req.BrandID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, model)
}

func (h *MasterDataHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.Service.ListMaterials(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if materials == nil {
		materials = []*models.ValveMaterial{}
	}
	utils.JSON(w, http.StatusOK, materials)
}

func (h *MasterDataHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	material, err := h.Service.CreateMaterial(r.Context(), req.Name)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, material)
}

func (h *MasterDataHandler) IOSizes(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.Service.IOSizeCatalog(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, catalog)
}

func (h *MasterDataHandler) CreateIOSize(w http.ResponseWriter, r *http.Request) {
	var req models.IOSize
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.CreateIOSize(r.Context(), req.InletSize, req.OutletSize); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]interface{}{"success": true})
}

func (h *MasterDataHandler) ListSetPressures(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.Service.ListSetPressures(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if pairs == nil {
		pairs = []models.SetPressurePair{}
	}
	utils.JSON(w, http.StatusOK, pairs)
}

func (h *MasterDataHandler) CreateSetPressure(w http.ResponseWriter, r *http.Request) {
	var req models.SetPressurePair
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.CreateSetPressure(r.Context(), req.SetPressure, req.InputPressure); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]interface{}{"success": true})
}

func (h *MasterDataHandler) CreateValveSerial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EquipmentNo  string `json:"equipment_no"`
		SerialNumber string `json:"serial_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.CreateSerial(r.Context(), req.EquipmentNo, req.SerialNumber); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]interface{}{"success": true})
}

// SerialsByEquipment lists the known serial numbers for a piece of equipment
func (h *MasterDataHandler) SerialsByEquipment(w http.ResponseWriter, r *http.Request) {
	equipmentNo := mux.Vars(r)["equipmentNo"]

	serials, err := h.Service.ListSerialsByEquipment(r.Context(), equipmentNo)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if serials == nil {
		serials = []*models.ValveSerial{}
	}
	utils.JSON(w, http.StatusOK, serials)
}
