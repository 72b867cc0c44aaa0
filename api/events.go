package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	model2 "github.com/sniperthink/chatcore/api/model"
	"github.com/sniperthink/chatcore/internal/apierror"
	"github.com/sniperthink/chatcore/model"

	"github.com/gin-gonic/gin"
)

// AcceptInboundEvent handles a provider webhook delivery. It binds the incoming
// JSON request to an InboundEvent, validates it, and runs it through the
// admission pipeline. Admission rejections are reported with the status code
// the provider expects for that outcome; a store failure maps to 503 so the
// provider retries the delivery.
//
// Responses:
// - 400 Bad Request: If there's an error in binding JSON or validating the event.
// - 404 Not Found: If the channel is not registered.
// - 202 Accepted: If the event was queued for processing.
// - 409 Conflict: If an identical message was already accepted within the dedup window.
// - 402 Payment Required: If the tenant's credit balance is exhausted.
// - 429 Too Many Requests: If the channel queues are at capacity.
// - 503 Service Unavailable: If a backing store was unreachable.
func (a Api) AcceptInboundEvent(c *gin.Context) {
	var inbound model2.InboundEvent
	if err := c.ShouldBindJSON(&inbound); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	err := inbound.ValidateInboundEvent()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	result, err := a.core.Accept(c.Request.Context(), inbound.ToChatEvent())
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": apiErr.Message})
			return
		}
		logrus.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admission temporarily unavailable, retry the delivery"})
		return
	}

	c.JSON(statusForOutcome(result.Outcome), result)
}

// statusForOutcome maps an admission outcome to the HTTP status providers key
// their retry behavior on.
func statusForOutcome(outcome string) int {
	switch outcome {
	case model.OutcomeQueued:
		return http.StatusAccepted
	case model.OutcomeDuplicate:
		return http.StatusConflict
	case model.OutcomeInsufficientCredit:
		return http.StatusPaymentRequired
	case model.OutcomeQueueFull:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// GetQueuedEvent looks up an admitted event that is still sitting on its
// channel queue. Once a worker has processed the event it is gone from the
// queue and this returns 404; the conversation endpoints carry it from there.
func (a Api) GetQueuedEvent(c *gin.Context) {
	event, err := a.core.Queue().GetEventFromQueue(c.Param("id"))
	if err != nil {
		logrus.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found on any queue"})
		return
	}
	c.JSON(http.StatusOK, event)
}

// GetQueueDepth reports the summed depth of the channel queues.
func (a Api) GetQueueDepth(c *gin.Context) {
	depth, err := a.core.Queue().Depth()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"depth": depth})
}
