package api

import (
	"net/http"

	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/Domenick1991/smartticket/internal/service/routes"
	"github.com/gin-gonic/gin"
)

type RouteHandler struct {
	service routes.RouteUseCase
	log     logger.Logger
}

func NewRouteHandler(service routes.RouteUseCase, log logger.Logger) *RouteHandler {
	return &RouteHandler{service: service, log: log}
}

func (h *RouteHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/search", h.search)
}

func (h *RouteHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

func (h *RouteHandler) search(c *gin.Context) {
	list, err := h.service.Search(c.Request.Context(), c.Query("departure"), c.Query("destination"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}
