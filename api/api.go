package api

import (
	"github.com/sniperthink/chatcore/api/middleware"
	"github.com/sniperthink/chatcore/config"

	"github.com/gin-gonic/gin"
	"github.com/sniperthink/chatcore"
)

type Api struct {
	core   *chatcore.Chatcore
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/webhooks/inbound", a.AcceptInboundEvent)

	router.POST("/channels", a.CreateChannel)
	router.GET("/channels/:id", a.GetChannel)
	router.GET("/channels", a.GetAllChannels)
	router.GET("/channels/:id/conversations", a.GetConversationsByChannel)

	router.GET("/conversations/:id", a.GetConversation)
	router.GET("/conversations/:id/messages", a.GetMessages)
	router.GET("/conversations/:id/extraction", a.GetLatestExtraction)

	router.POST("/credits/:tenant_id/top-up", a.TopUpCredit)
	router.GET("/credits/:tenant_id", a.GetCreditLedger)

	router.GET("/events/:id", a.GetQueuedEvent)

	router.GET("/queues/depth", a.GetQueueDepth)
	return a.router
}

func NewAPI(core *chatcore.Chatcore) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{core: core, router: r}
}
