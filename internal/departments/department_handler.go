package departments

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
)

type DepartmentHandler struct {
	repository *DepartmentRepository
}

func NewDepartmentHandler(repository *DepartmentRepository) *DepartmentHandler {
	return &DepartmentHandler{repository: repository}
}

func (h *DepartmentHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/departments", h.GetDepartments)
	router.GET("/departments/:id", h.GetDepartment)
	router.POST("/departments", h.CreateDepartment)
}

func (h *DepartmentHandler) GetDepartments(c *gin.Context) {
	departments, err := h.repository.GetDepartments()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list departments", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, departments)
}

func (h *DepartmentHandler) GetDepartment(c *gin.Context) {
	departmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid department ID"})
		return
	}

	department, err := h.repository.GetDepartment(departmentID)
	if err != nil {
		if custom_error.IsKind(err, custom_error.KindNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Department not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get department", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, department)
}

func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var department models.Department

	if err := c.ShouldBindJSON(&department); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	created, err := h.repository.PersistDepartment(department)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to create department", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, created)
}
