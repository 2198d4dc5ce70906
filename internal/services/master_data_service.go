package services

import (
	"context"
	"strings"

	"valve-backend/internal/apperrors"
	"valve-backend/internal/models"
	"valve-backend/internal/repositories"
)

type MasterDataService struct {
	Repo *repositories.MasterDataRepository
}

func NewMasterDataService(repo *repositories.MasterDataRepository) *MasterDataService {
	return &MasterDataService{Repo: repo}
}

func (s *MasterDataService) ListBrands(ctx context.Context) ([]*models.ValveBrand, error) {
	brands, err := s.Repo.ListBrands(ctx)
	if err != nil {
		return nil, apperrors.Store("list brands", err)
	}
	return brands, nil
}

func (s *MasterDataService) CreateBrand(ctx context.Context, name string) (*models.ValveBrand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name", "brand name is required")
	}
	return s.Repo.CreateBrand(ctx, name)
}

func (s *MasterDataService) ListModels(ctx context.Context, brandID int) ([]*models.ValveModel, error) {
	result, err := s.Repo.ListModels(ctx, brandID)
	if err != nil {
		return nil, apperrors.Store("list models", err)
	}
	return result, nil
}

func (s *MasterDataService) CreateModel(ctx context.Context, name string, brandID *int) (*models.ValveModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name", "model name is required")
	}
	return s.Repo.CreateModel(ctx, name, brandID)
}

func (s *MasterDataService) ListMaterials(ctx context.Context) ([]*models.ValveMaterial, error) {
	materials, err := s.Repo.ListMaterials(ctx)
	if err != nil {
		return nil, apperrors.Store("list materials", err)
	}
	return materials, nil
}

func (s *MasterDataService) CreateMaterial(ctx context.Context, name string) (*models.ValveMaterial, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name", "material name is required")
	}
	return s.Repo.CreateMaterial(ctx, name)
}

// IOSizeCatalog groups the inlet/outlet pairs so the form can narrow outlet
// choices by the selected inlet
func (s *MasterDataService) IOSizeCatalog(ctx context.Context) (*models.IOSizeCatalog, error) {
	sizes, err := s.Repo.ListIOSizes(ctx)
	if err != nil {
		return nil, apperrors.Store("list io sizes", err)
	}

	catalog := &models.IOSizeCatalog{
		Raw:     sizes,
		Grouped: make(map[string][]string),
	}
	seenInlet := make(map[string]bool)
	seenOutlet := make(map[string]bool)
	for _, size := range sizes {
		catalog.Grouped[size.InletSize] = append(catalog.Grouped[size.InletSize], size.OutletSize)
		if !seenInlet[size.InletSize] {
			seenInlet[size.InletSize] = true
			catalog.InletSizes = append(catalog.InletSizes, size.InletSize)
		}
		if !seenOutlet[size.OutletSize] {
			seenOutlet[size.OutletSize] = true
			catalog.OutletSizes = append(catalog.OutletSizes, size.OutletSize)
		}
	}
	return catalog, nil
}

func (s *MasterDataService) CreateIOSize(ctx context.Context, inlet, outlet string) error {
	inlet, outlet = strings.TrimSpace(inlet), strings.TrimSpace(outlet)
	if inlet == "" || outlet == "" {
		return apperrors.Validation("inlet_size", "both inlet and outlet size are required")
	}
	return s.Repo.CreateIOSize(ctx, inlet, outlet)
}

func (s *MasterDataService) ListSetPressures(ctx context.Context) ([]models.SetPressurePair, error) {
	pairs, err := s.Repo.ListSetPressures(ctx)
	if err != nil {
		return nil, apperrors.Store("list set pressures", err)
	}
	return pairs, nil
}

func (s *MasterDataService) CreateSetPressure(ctx context.Context, setPressure, inputPressure float64) error {
	if setPressure <= 0 {
		return apperrors.Validation("set_pressure", "set pressure must be positive")
	}
	if inputPressure <= 0 {
		return apperrors.Validation("input_pressure", "input pressure must be positive")
	}
	return s.Repo.CreateSetPressure(ctx, setPressure, inputPressure)
}

func (s *MasterDataService) CreateSerial(ctx context.Context, equipmentNo, serialNumber string) error {
	equipmentNo = strings.TrimSpace(equipmentNo)
	serialNumber = strings.TrimSpace(serialNumber)
	if equipmentNo == "" {
		return apperrors.Validation("equipment_no", "equipment number is required")
	}
	if serialNumber == "" {
		return apperrors.Validation("serial_number", "serial number is required")
	}
	if err := s.Repo.CreateSerial(ctx, equipmentNo, serialNumber); err != nil {
		return apperrors.Store("create valve serial", err)
	}
	return nil
}

func (s *MasterDataService) ListSerialsByEquipment(ctx context.Context, equipmentNo string) ([]*models.ValveSerial, error) {
	if equipmentNo == "" {
		return nil, apperrors.Validation("equipment_no", "equipment number is required")
	}
	serials, err := s.Repo.ListSerialsByEquipment(ctx, equipmentNo)
	if err != nil {
		return nil, apperrors.Store("list valve serials", err)
	}
	return serials, nil
}
