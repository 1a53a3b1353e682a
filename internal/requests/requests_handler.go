package requests

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/auditlog"
	custom_error "github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/errors"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/models"
	"github.com/ValueKare/fixed-asset-management-system-backend-sub000/pkg/security"
)

// AuditTrail reads back the persisted audit entries for a resource.
type AuditTrail interface {
	GetLogsForResource(resourceType string, resourceUUID string) (*[]models.AuditLog, error)
}

type RequestHandler struct {
	service  *RequestService
	auditLog *auditlog.Auditlog
	trail    AuditTrail
}

func NewHandler(service *RequestService, auditLog *auditlog.Auditlog, trail AuditTrail) *RequestHandler {
	return &RequestHandler{
		service:  service,
		auditLog: auditLog,
		trail:    trail,
	}
}

func (h *RequestHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/requests", h.CreateRequest)
	router.GET("/requests/pending", h.ListPending)
	router.GET("/requests/:id", h.GetRequest)
	router.GET("/requests/:id/history", h.GetRequestHistory)
	router.POST("/requests/:id/approve", h.ApproveRequest)
	router.POST("/requests/:id/reject", h.RejectRequest)
	router.POST("/requests/:id/assets/reserve", h.ReserveAssets)
	router.POST("/requests/:id/assets/fulfill", h.FulfillRequest)
	router.POST("/requests/:id/assets/reject", h.RejectAssets)
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	actor, err := security.ActorFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing actor identity"})
		return
	}

	var payload models.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	request, err := h.service.CreateRequest(actor, payload)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	go h.auditLog.Log("request_created", map[string]interface{}{
		"request_type":  string(request.RequestType),
		"current_level": request.CurrentLevel.String(),
		"department_id": request.Scope.DepartmentID,
	}, request)

	c.JSON(http.StatusCreated, request)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	request, err := h.service.GetRequest(requestID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *RequestHandler) GetRequestHistory(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	logs, err := h.trail.GetLogsForResource("request", requestID.String())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to read request history", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, logs)
}

func (h *RequestHandler) ListPending(c *gin.Context) {
	actor, err := security.ActorFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing actor identity"})
		return
	}

	requests, err := h.service.ListPendingForActor(actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	h.decide(c, "request_approved", h.service.ApproveRequest)
}

func (h *RequestHandler) RejectRequest(c *gin.Context) {
	h.decide(c, "request_rejected", h.service.RejectRequest)
}

func (h *RequestHandler) decide(c *gin.Context, action string, decision func(uuid.UUID, models.Actor, string) (*models.Request, error)) {
	actor, err := security.ActorFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing actor identity"})
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var payload models.DecisionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	request, err := decision(requestID, actor, payload.Remarks)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	go h.auditLog.Log(action, map[string]interface{}{
		"actor_id":      actor.UserID,
		"actor_role":    actor.Role.String(),
		"current_level": request.CurrentLevel.String(),
		"final_status":  string(request.FinalStatus),
		"remarks":       payload.Remarks,
	}, request)

	c.JSON(http.StatusOK, request)
}

func (h *RequestHandler) ReserveAssets(c *gin.Context) {
	h.applyAssetSet(c, "assets_reserved", func(requestID uuid.UUID, actor models.Actor, payload models.AssetSetPayload) (*models.Request, error) {
		return h.service.ReserveSpecificAssets(requestID, actor, payload.AssetIDs)
	})
}

func (h *RequestHandler) FulfillRequest(c *gin.Context) {
	h.applyAssetSet(c, "assets_fulfilled", func(requestID uuid.UUID, actor models.Actor, payload models.AssetSetPayload) (*models.Request, error) {
		return h.service.FulfillRequest(requestID, actor, payload.AssetIDs)
	})
}

func (h *RequestHandler) RejectAssets(c *gin.Context) {
	h.applyAssetSet(c, "assets_rejected", func(requestID uuid.UUID, actor models.Actor, payload models.AssetSetPayload) (*models.Request, error) {
		return h.service.RejectRequestAssets(requestID, actor, payload.AssetIDs, payload.Remarks)
	})
}

func (h *RequestHandler) applyAssetSet(c *gin.Context, action string, apply func(uuid.UUID, models.Actor, models.AssetSetPayload) (*models.Request, error)) {
	actor, err := security.ActorFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing actor identity"})
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var payload models.AssetSetPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	request, err := apply(requestID, actor, payload)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	go h.auditLog.Log(action, map[string]interface{}{
		"actor_id":  actor.UserID,
		"asset_ids": payload.AssetIDs,
	}, request)

	c.JSON(http.StatusOK, request)
}

func respondDomainError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	if custom_error.IsKind(err, custom_error.KindValidation) {
		status = http.StatusBadRequest
	} else if custom_error.IsKind(err, custom_error.KindNotFound) {
		status = http.StatusNotFound
	} else if custom_error.IsKind(err, custom_error.KindStageMismatch) ||
		custom_error.IsKind(err, custom_error.KindOutOfScope) ||
		custom_error.IsKind(err, custom_error.KindCrossHospitalDeny) {
		status = http.StatusForbidden
	} else if custom_error.IsKind(err, custom_error.KindAlreadyClosed) ||
		custom_error.IsKind(err, custom_error.KindAssetConflict) ||
		custom_error.IsKind(err, custom_error.KindConcurrentConflict) {
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal error", "details": err.Error()})
		return
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
