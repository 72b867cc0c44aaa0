package api

import (
	"net/http"
	"strconv"

	model2 "github.com/sniperthink/chatcore/api/model"
	"github.com/sniperthink/chatcore/internal/apierror"

	"github.com/gin-gonic/gin"
)

// CreateChannel registers a messaging endpoint under a tenant. It binds the
// incoming JSON request to a CreateChannel object, validates it, and persists
// the channel.
//
// Responses:
// - 400 Bad Request: If there's an error in binding JSON or validating the channel.
// - 201 Created: If the channel is successfully created.
func (a Api) CreateChannel(c *gin.Context) {
	var newChannel model2.CreateChannel
	if err := c.ShouldBindJSON(&newChannel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := newChannel.ValidateCreateChannel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.core.Datasource().CreateChannel(c.Request.Context(), newChannel.ToChannel())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetChannel retrieves a channel based on the provided ID.
//
// Responses:
// - 400 Bad Request: If the ID is not provided.
// - 404 Not Found: If the channel does not exist.
// - 200 OK: If the channel is successfully retrieved.
func (a Api) GetChannel(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.core.Datasource().GetChannel(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAllChannels retrieves a paginated list of registered channels.
func (a Api) GetAllChannels(c *gin.Context) {
	limit, offset := paginationParams(c)
	resp, err := a.core.Datasource().GetAllChannels(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// paginationParams reads limit and offset query parameters, falling back to
// sane defaults when absent or malformed.
func paginationParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
