package users

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/internal/repository"
	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

var userColumns = []interface{}{
	"id", "username", "fullname", "role",
	"department_id", "hospital_id", "organization_id",
}

type UserRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) *UserRepository {
	return &UserRepository{Repo: r}
}

func (r *UserRepository) GetUsers() (*[]models.User, error) {
	var users []models.User

	query := r.Repo.GoquDBWrapper.
		Select(userColumns...).
		From("users").
		Order(goqu.C("username").Asc())

	if err := query.Executor().ScanStructs(&users); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return &users, nil
}

func (r *UserRepository) GetUser(id int) (*models.User, error) {
	var user models.User

	found, err := r.Repo.GoquDBWrapper.
		Select(userColumns...).
		From("users").
		Where(goqu.Ex{"id": id}).
		Executor().
		ScanStruct(&user)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("user", id)
	}

	return &user, nil
}

type CreateUserRequest struct {
	Username       string `json:"username" binding:"required"`
	Fullname       string `json:"fullname" binding:"required"`
	Password       string `json:"password" binding:"required,min=8"`
	Role           string `json:"role" binding:"required"`
	DepartmentID   int    `json:"department_id" binding:"required"`
	HospitalID     int    `json:"hospital_id" binding:"required"`
	OrganizationID int    `json:"organization_id" binding:"required"`
}

func (r *UserRepository) PersistUser(req CreateUserRequest) (*models.User, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := r.Repo.GoquDBWrapper.Insert("users").
		Rows(goqu.Record{
			"username":        req.Username,
			"fullname":        req.Fullname,
			"password_hash":   string(passwordHash),
			"role":            req.Role,
			"department_id":   req.DepartmentID,
			"hospital_id":     req.HospitalID,
			"organization_id": req.OrganizationID,
		}).
		Returning("id")

	var userID int
	if _, err := query.Executor().ScanVal(&userID); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return r.GetUser(userID)
}
