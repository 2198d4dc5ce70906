package repositories

import (
	"context"
	"errors"

	"valve-backend/internal/apperrors"
	"valve-backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MasterDataRepository manages the dropdown catalogs behind the report form
type MasterDataRepository struct {
	DB *pgxpool.Pool
}

func NewMasterDataRepository(db *pgxpool.Pool) *MasterDataRepository {
	return &MasterDataRepository{DB: db}
}

func (r *MasterDataRepository) ListBrands(ctx context.Context) ([]*models.ValveBrand, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, brand_name FROM valve_brands WHERE is_active ORDER BY brand_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []*models.ValveBrand
	for rows.Next() {
		var b models.ValveBrand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		brands = append(brands, &b)
	}
	return brands, rows.Err()
}

func (r *MasterDataRepository) CreateBrand(ctx context.Context, name string) (*models.ValveBrand, error) {
	b := models.ValveBrand{Name: name}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO valve_brands(brand_name) VALUES($1) RETURNING id`, name,
	).Scan(&b.ID)
	if err != nil {
		return nil, mapDuplicate(err, "brand already exists")
	}
	return &b, nil
}

// ListModels returns models joined with their brand name. brandID 0 means all.
func (r *MasterDataRepository) ListModels(ctx context.Context, brandID int) ([]*models.ValveModel, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT m.id, m.model_name, m.brand_id, COALESCE(b.brand_name, '')
		 FROM valve_models m
		 LEFT JOIN valve_brands b ON b.id = m.brand_id
		 WHERE m.is_active AND ($1 = 0 OR m.brand_id = $1)
		 ORDER BY m.model_name`, brandID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.ValveModel
	for rows.Next() {
		var m models.ValveModel
		if err := rows.Scan(&m.ID, &m.Name, &m.BrandID, &m.BrandName); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}

func (r *MasterDataRepository) CreateModel(ctx context.Context, name string, brandID *int) (*models.ValveModel, error) {
	m := models.ValveModel{Name: name, BrandID: brandID}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO valve_models(model_name, brand_id) VALUES($1, $2) RETURNING id`,
		name, brandID,
	).Scan(&m.ID)
	if err != nil {
		return nil, mapDuplicate(err, "model already exists")
	}
	return &m, nil
}

func (r *MasterDataRepository) ListMaterials(ctx context.Context) ([]*models.ValveMaterial, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, material_name FROM valve_materials WHERE is_active ORDER BY material_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []*models.ValveMaterial
	for rows.Next() {
		var m models.ValveMaterial
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		materials = append(materials, &m)
	}
	return materials, rows.Err()
}

func (r *MasterDataRepository) CreateMaterial(ctx context.Context, name string) (*models.ValveMaterial, error) {
	m := models.ValveMaterial{Name: name}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO valve_materials(material_name) VALUES($1) RETURNING id`, name,
	).Scan(&m.ID)
	if err != nil {
		return nil, mapDuplicate(err, "material already exists")
	}
	return &m, nil
}

// ListIOSizes returns inlet/outlet pairs ordered for stable grouping
func (r *MasterDataRepository) ListIOSizes(ctx context.Context) ([]models.IOSize, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT inlet_size, outlet_size FROM valve_io_sizes WHERE is_active
		 ORDER BY inlet_size, outlet_size`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sizes []models.IOSize
	for rows.Next() {
		var s models.IOSize
		if err := rows.Scan(&s.InletSize, &s.OutletSize); err != nil {
			return nil, err
		}
		sizes = append(sizes, s)
	}
	return sizes, rows.Err()
}

func (r *MasterDataRepository) CreateIOSize(ctx context.Context, inlet, outlet string) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO valve_io_sizes(inlet_size, outlet_size) VALUES($1, $2)`,
		inlet, outlet)
	return mapDuplicate(err, "size pair already exists")
}

// ListSetPressures returns the set/input pressure reference table
func (r *MasterDataRepository) ListSetPressures(ctx context.Context) ([]models.SetPressurePair, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT set_pressure, input_pressure FROM valve_set_pressures WHERE is_active
		 ORDER BY set_pressure`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []models.SetPressurePair
	for rows.Next() {
		var p models.SetPressurePair
		if err := rows.Scan(&p.SetPressure, &p.InputPressure); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (r *MasterDataRepository) CreateSetPressure(ctx context.Context, setPressure, inputPressure float64) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO valve_set_pressures(set_pressure, input_pressure) VALUES($1, $2)`,
		setPressure, inputPressure)
	return err
}

// ListSerialsByEquipment returns the known serial numbers for a piece of
// equipment, for the form's serial picker.
func (r *MasterDataRepository) ListSerialsByEquipment(ctx context.Context, equipmentNo string) ([]*models.ValveSerial, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, equipment_no, serial_number FROM valve_serials
		 WHERE is_active AND equipment_no=$1 ORDER BY serial_number`, equipmentNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var serials []*models.ValveSerial
	for rows.Next() {
		var s models.ValveSerial
		if err := rows.Scan(&s.ID, &s.EquipmentNo, &s.SerialNumber); err != nil {
			return nil, err
		}
		serials = append(serials, &s)
	}
	return serials, rows.Err()
}

// CreateSerial registers a serial number against a piece of equipment.
// Re-registering the same pair is a no-op, matching the insert done on
// report creation.
func (r *MasterDataRepository) CreateSerial(ctx context.Context, equipmentNo, serialNumber string) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO valve_serials(equipment_no, serial_number) VALUES($1, $2)
		 ON CONFLICT (equipment_no, serial_number) DO NOTHING`,
		equipmentNo, serialNumber)
	return err
}

func mapDuplicate(err error, message string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.Conflict(message)
	}
	return err
}
