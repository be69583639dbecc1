package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"DanceSync/internal/repository"
	"DanceSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type eventQuerier interface {
	ListEvents(ctx context.Context, filter repository.EventFilter, page, pageSize int) (*service.EventListResult, error)
	GetEvent(ctx context.Context, eventUUID string) (*service.EventView, error)
	GetRun(ctx context.Context, runUUID string, rejectionLimit int) (*service.RunView, error)
}

// EventHandler 提供给前端的事件查询接口
type EventHandler struct {
	eventService eventQuerier
	logger       *logrus.Logger
}

func NewEventHandler(eventService eventQuerier, logger *logrus.Logger) *EventHandler {
	return &EventHandler{eventService: eventService, logger: logger}
}

// ListEvents 事件列表接口
// GET /api/events?city=Chicago&style=Salsa&from=2025-03-01&to=2025-03-31&live_band=true&page=1&page_size=20
func (h *EventHandler) ListEvents(c *gin.Context) {
	filter := repository.EventFilter{
		City:    c.Query("city"),
		Country: c.Query("country"),
		Style:   c.Query("style"),
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.FromDay}, {"to", &filter.ToDay}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		day, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": p.name + " must be YYYY-MM-DD"})
			return
		}
		*p.dst = &day
	}
	if v := c.Query("live_band"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "live_band must be a boolean"})
			return
		}
		filter.LiveBand = &b
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.eventService.ListEvents(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("ListEvents failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetEvent 事件详情（含来源溯源）
// GET /api/events/:event_uuid
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventUUID := c.Param("event_uuid")
	result, err := h.eventService.GetEvent(c.Request.Context(), eventUUID)
	if err != nil {
		h.respondError(c, err, "GetEvent failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetRun 运行记录与前若干条拒绝明细
// GET /api/runs/:run_uuid?rejections=100
func (h *EventHandler) GetRun(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("rejections", "100"))
	result, err := h.eventService.GetRun(c.Request.Context(), c.Param("run_uuid"), limit)
	if err != nil {
		h.respondError(c, err, "GetRun failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EventHandler) respondError(c *gin.Context, err error, msg string) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
