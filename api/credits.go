package api

import (
	"net/http"

	model2 "github.com/sniperthink/chatcore/api/model"
	"github.com/sniperthink/chatcore/internal/apierror"

	"github.com/gin-gonic/gin"
)

// TopUpCredit adds prepaid credits to a tenant's balance. It binds the
// incoming JSON request to a TopUpCredit object, validates it, and applies
// the increment.
//
// Responses:
// - 400 Bad Request: If there's an error in binding JSON or validating the top-up.
// - 200 OK: If the balance is successfully updated.
func (a Api) TopUpCredit(c *gin.Context) {
	tenantID, passed := c.Params.Get("tenant_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required. pass tenant_id in the route /:tenant_id"})
		return
	}

	var topUp model2.TopUpCredit
	if err := c.ShouldBindJSON(&topUp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := topUp.ValidateTopUpCredit()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.core.Datasource().TopUpCredit(c.Request.Context(), tenantID, topUp.Amount)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetCreditLedger retrieves a tenant's remaining credit balance.
func (a Api) GetCreditLedger(c *gin.Context) {
	tenantID, passed := c.Params.Get("tenant_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required. pass tenant_id in the route /:tenant_id"})
		return
	}

	resp, err := a.core.Datasource().GetCreditLedger(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
