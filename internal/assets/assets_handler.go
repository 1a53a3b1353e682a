package assets

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/auditlog"
	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
)

type AssetHandler struct {
	ledger   LedgerRepository
	service  *AssetService
	auditLog *auditlog.Auditlog
}

func NewAssetHandler(ledger LedgerRepository, service *AssetService, auditLog *auditlog.Auditlog) *AssetHandler {
	return &AssetHandler{
		ledger:   ledger,
		service:  service,
		auditLog: auditLog,
	}
}

func (h *AssetHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/assets/:id", h.GetAsset)
	router.POST("/assets", h.CreateAsset)
	router.GET("/departments/:id/assets", h.GetDepartmentAssets)
	router.GET("/departments/:id/assets/available", h.GetAvailableAssets)
	router.GET("/requests/:id/assets", h.GetReservedAssets)
}

func (h *AssetHandler) GetReservedAssets(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	assets, err := h.ledger.FindReservedByRequest(requestID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list reserved assets", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, assets)
}

func (h *AssetHandler) GetAsset(c *gin.Context) {
	assetID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID"})
		return
	}

	asset, err := h.ledger.GetAsset(assetID)
	if err != nil {
		if custom_error.IsKind(err, custom_error.KindNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to get asset", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, asset)
}

func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var assetRequest AssetRequest

	if err := c.ShouldBindJSON(&assetRequest); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	asset, err := h.service.RegisterAsset(assetRequest)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to create asset", "details": err.Error()})
		return
	}

	go h.auditLog.Log("asset_registered", map[string]interface{}{
		"tag_code":      asset.TagCode,
		"department_id": asset.CurrentDepartment.ID,
	}, asset)

	c.JSON(http.StatusCreated, asset)
}

func (h *AssetHandler) GetDepartmentAssets(c *gin.Context) {
	departmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid department ID"})
		return
	}

	assets, err := h.ledger.ListByDepartment(departmentID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list assets", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, assets)
}

func (h *AssetHandler) GetAvailableAssets(c *gin.Context) {
	departmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid department ID"})
		return
	}

	assets, err := h.ledger.ListAvailable(departmentID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to list available assets", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, assets)
}
