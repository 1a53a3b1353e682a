package users

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/roles"
)

type UsersHandler struct {
	repository *UserRepository
}

func NewHandler(repository *UserRepository) *UsersHandler {
	return &UsersHandler{repository: repository}
}

func (h *UsersHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/users", h.GetUsers)
	router.GET("/users/:id", h.GetUser)
	router.POST("/users", h.CreateUser)
}

func (h *UsersHandler) GetUsers(c *gin.Context) {
	users, err := h.repository.GetUsers()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list users", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.repository.GetUser(userID)
	if err != nil {
		if custom_error.IsKind(err, custom_error.KindNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get user", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if !roles.Role(req.Role).IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	user, err := h.repository.PersistUser(req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to create user", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, user)
}
