package departments

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/repository"
	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

type DepartmentRepository struct {
	Repo *repository.Repository
}

func NewDepartmentRepository(r *repository.Repository) *DepartmentRepository {
	return &DepartmentRepository{Repo: r}
}

func (r *DepartmentRepository) GetDepartments() (*[]models.Department, error) {
	var departments []models.Department

	query := r.Repo.GoquDBWrapper.
		Select("id", "name", "hospital_id").
		From("departments").
		Order(goqu.C("name").Asc())

	if err := query.Executor().ScanStructs(&departments); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return &departments, nil
}

func (r *DepartmentRepository) GetDepartment(id int) (*models.Department, error) {
	var department models.Department

	found, err := r.Repo.GoquDBWrapper.
		Select("id", "name", "hospital_id").
		From("departments").
		Where(goqu.Ex{"id": id}).
		Executor().
		ScanStruct(&department)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("department", id)
	}

	return &department, nil
}

func (r *DepartmentRepository) GetHospital(id int) (*models.Hospital, error) {
	var hospital models.Hospital

	found, err := r.Repo.GoquDBWrapper.
		Select("id", "name", "organization_id").
		From("hospitals").
		Where(goqu.Ex{"id": id}).
		Executor().
		ScanStruct(&hospital)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("hospital", id)
	}

	return &hospital, nil
}

func (r *DepartmentRepository) PersistDepartment(department models.Department) (*models.Department, error) {
	query := r.Repo.GoquDBWrapper.Insert("departments").
		Rows(goqu.Record{
			"name":        department.Name,
			"hospital_id": department.HospitalID,
		}).
		Returning("id")

	var departmentID int
	if _, err := query.Executor().ScanVal(&departmentID); err != nil {
		return nil, fmt.Errorf("failed to insert department: %w", err)
	}

	department.ID = departmentID
	return &department, nil
}
