package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-escrow/internal/service"
)

type ArbitratorHandler struct {
	arbitrators *service.ArbitratorService
}

func NewArbitratorHandler(arbitrators *service.ArbitratorService) *ArbitratorHandler {
	return &ArbitratorHandler{arbitrators: arbitrators}
}

// Apply POST /arbitrators
func (h *ArbitratorHandler) Apply(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Specializations []string `json:"specializations" binding:"required"`
		Stake           float64  `json:"stake" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "specializations и stake обязательны")
		return
	}

	arb, err := h.arbitrators.Apply(c.Request.Context(), userID, req.Specializations, req.Stake)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, arb)
}

// Me GET /arbitrators/me
func (h *ArbitratorHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	arb, err := h.arbitrators.GetArbitrator(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, arb)
}

// SetPresence PUT /arbitrators/me/presence
func (h *ArbitratorHandler) SetPresence(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Presence string `json:"presence" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "presence обязателен")
		return
	}

	if err := h.arbitrators.SetPresence(c.Request.Context(), userID, req.Presence); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"presence": req.Presence})
}

// BookGig POST /arbitrators/me/gigs
func (h *ArbitratorHandler) BookGig(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		StartTime time.Time `json:"start_time" binding:"required"`
		EndTime   time.Time `json:"end_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "start_time и end_time обязательны")
		return
	}

	gig, err := h.arbitrators.BookGig(c.Request.Context(), userID, req.StartTime, req.EndTime)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gig)
}

// CancelGig DELETE /arbitrators/me/gigs/:id
func (h *ArbitratorHandler) CancelGig(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	gigID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	gig, err := h.arbitrators.CancelGig(c.Request.Context(), userID, gigID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gig)
}

// ListGigs GET /arbitrators/me/gigs
func (h *ArbitratorHandler) ListGigs(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	gigs, err := h.arbitrators.ListGigs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gigs": gigs})
}

// Balance GET /balance
func (h *ArbitratorHandler) Balance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.arbitrators.Balance(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
