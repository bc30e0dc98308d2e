package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/service"
)

type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// CreateProject POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Domain      string `json:"domain" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "title и domain обязательны")
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), userID, req.Title, req.Description, req.Domain)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetProject GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, err := h.projects.GetProject(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// SubmitProposal POST /projects/:id/proposals
func (h *ProjectHandler) SubmitProposal(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		CoverLetter string  `json:"cover_letter"`
		Amount      float64 `json:"amount" binding:"required,gt=0"`
		Milestones  []struct {
			Title   string     `json:"title" binding:"required"`
			Amount  float64    `json:"amount" binding:"required,gt=0"`
			DueDate *time.Time `json:"due_date"`
		} `json:"milestones"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма предложения должна быть положительной")
		return
	}

	milestones := make([]models.ProposalMilestone, 0, len(req.Milestones))
	for _, m := range req.Milestones {
		milestones = append(milestones, models.ProposalMilestone{
			Title:   m.Title,
			Amount:  m.Amount,
			DueDate: m.DueDate,
		})
	}

	proposal, err := h.projects.SubmitProposal(c.Request.Context(), projectID, userID, req.CoverLetter, req.Amount, milestones)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// ListProposals GET /projects/:id/proposals
func (h *ProjectHandler) ListProposals(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	proposals, err := h.projects.ListProposals(c.Request.Context(), projectID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}
