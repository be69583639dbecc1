package api

import (
	"context"
	"net/http"
	"time"

	"DanceSync/internal/model"
	"DanceSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type syncRunner interface {
	RunQuery(ctx context.Context, query model.QueryContext) (*service.RunSummary, error)
	RunCities(ctx context.Context) ([]*service.RunSummary, error)
}

type SyncHandler struct {
	syncService syncRunner
	logger      *logrus.Logger
}

func NewSyncHandler(syncService syncRunner, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// RunRequest POST /sync/run 请求体
type RunRequest struct {
	City        string `json:"city" binding:"required"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code" binding:"omitempty,len=2"`
	Keyword     string `json:"keyword"`
	Timezone    string `json:"timezone"`
	Language    string `json:"hl"`
	From        string `json:"from"` // 2006-01-02
	To          string `json:"to"`
}

func (r *RunRequest) query() (model.QueryContext, error) {
	q := model.QueryContext{
		City:        r.City,
		Country:     r.Country,
		CountryCode: r.CountryCode,
		Keyword:     r.Keyword,
		Timezone:    r.Timezone,
		Language:    r.Language,
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return q, err
		}
	}
	var err error
	if r.From != "" {
		if q.Window.From, err = model.ParseDate(r.From); err != nil {
			return q, err
		}
	}
	if r.To != "" {
		if q.Window.To, err = model.ParseDate(r.To); err != nil {
			return q, err
		}
	}
	return q, nil
}

// RunQueryHandler 对单个城市/关键词执行一次完整运行
// @Summary 执行一次抓取+清洗+落库
// @Param body body RunRequest true "查询上下文"
// @Success 200 {object} service.RunSummary
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sync/run [post]
func (h *SyncHandler) RunQueryHandler(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query, err := req.query()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.syncService.RunQuery(c.Request.Context(), query)
	if err != nil {
		h.logger.WithError(err).WithField("city", query.City).Error("同步运行失败")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RunCitiesHandler 遍历配置的城市列表
// @Router /sync/cities [post]
func (h *SyncHandler) RunCitiesHandler(c *gin.Context) {
	summaries, err := h.syncService.RunCities(c.Request.Context())
	if summaries == nil {
		summaries = []*service.RunSummary{}
	}
	if err != nil {
		h.logger.WithError(err).Error("城市批量运行存在失败")
		c.JSON(http.StatusMultiStatus, gin.H{
			"error": err.Error(),
			"runs":  summaries,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": summaries})
}
