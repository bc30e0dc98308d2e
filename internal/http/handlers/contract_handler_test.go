package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestContractHandler_AcceptProposal_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ContractHandler{contracts: nil}
	r.POST("/proposals/:id/accept", handler.AcceptProposal)

	proposalID := uuid.New()
	req, _ := http.NewRequest("POST", "/proposals/"+proposalID.String()+"/accept", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContractHandler_AcceptProposal_InvalidProposalID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	handler := &ContractHandler{contracts: nil}
	r.POST("/proposals/:id/accept", handler.AcceptProposal)

	req, _ := http.NewRequest("POST", "/proposals/invalid-uuid/accept", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContractHandler_GetContract_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ContractHandler{contracts: nil}
	r.GET("/contracts/:id", handler.GetContract)

	contractID := uuid.New()
	req, _ := http.NewRequest("GET", "/contracts/"+contractID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContractHandler_Sign_InvalidContractID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	handler := &ContractHandler{contracts: nil}
	r.POST("/contracts/:id/sign", handler.Sign)

	req, _ := http.NewRequest("POST", "/contracts/invalid-uuid/sign", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
