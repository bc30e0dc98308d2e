package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-escrow/internal/service"
	"github.com/ignatzorin/freelance-escrow/internal/storage"
)

type MilestoneHandler struct {
	milestones *service.MilestoneService
	proofs     *storage.ProofStorage
}

func NewMilestoneHandler(milestones *service.MilestoneService, proofs *storage.ProofStorage) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones, proofs: proofs}
}

// parseMilestoneRef извлекает contractID и индекс вехи из пути.
func parseMilestoneRef(c *gin.Context) (uuid.UUID, int, bool) {
	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, 0, false
	}
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		common.RespondBadRequest(c, "индекс вехи должен быть неотрицательным числом")
		return uuid.Nil, 0, false
	}
	return contractID, idx, true
}

// SubmitProof POST /contracts/:id/milestones/:idx/submit
func (h *MilestoneHandler) SubmitProof(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, idx, ok := parseMilestoneRef(c)
	if !ok {
		return
	}

	var req struct {
		ProofRef    string `json:"proof_ref" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "proof_ref обязателен")
		return
	}

	submission, err := h.milestones.SubmitProof(c.Request.Context(), contractID, idx, userID, req.ProofRef, req.Description)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// UploadProof POST /contracts/:id/milestones/:idx/attachment
// Принимает файл вложения и возвращает proof_ref для SubmitProof.
func (h *MilestoneHandler) UploadProof(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "файл обязателен")
		return
	}
	defer file.Close()

	relative, size, err := h.proofs.Save(c.Request.Context(), userID, header.Filename, file)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"proof_ref": relative, "size": size})
}

// RequestRevision POST /contracts/:id/milestones/:idx/revision
func (h *MilestoneHandler) RequestRevision(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, idx, ok := parseMilestoneRef(c)
	if !ok {
		return
	}

	var req struct {
		Feedback string `json:"feedback" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "feedback обязателен")
		return
	}

	submission, err := h.milestones.RequestRevision(c.Request.Context(), contractID, idx, userID, req.Feedback)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// Approve POST /contracts/:id/milestones/:idx/approve
func (h *MilestoneHandler) Approve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, idx, ok := parseMilestoneRef(c)
	if !ok {
		return
	}

	milestone, err := h.milestones.ApproveMilestone(c.Request.Context(), contractID, idx, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, milestone)
}

// GetSubmission GET /contracts/:id/milestones/:idx/submission
func (h *MilestoneHandler) GetSubmission(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	contractID, idx, ok := parseMilestoneRef(c)
	if !ok {
		return
	}

	submission, err := h.milestones.GetSubmission(c.Request.Context(), contractID, idx, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
