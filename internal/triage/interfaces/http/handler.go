package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/amltriage/internal/triage/application"
	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// TriageHandler 告警分诊 HTTP 接口
type TriageHandler struct {
	service *application.TriageService
}

// NewTriageHandler 创建 HTTP 接口
func NewTriageHandler(service *application.TriageService) *TriageHandler {
	return &TriageHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *TriageHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		alerts := api.Group("/alerts")
		{
			alerts.POST("", h.CreateAlert)
			alerts.GET("", h.ListAlerts)
			alerts.GET("/:id", h.GetAlert)
			alerts.POST("/:id/investigate", h.Investigate)
			alerts.GET("/:id/timeline", h.Timeline)
			alerts.GET("/:id/stream", h.StreamEvents)
			alerts.POST("/:id/proof", h.SubmitProof)
			alerts.GET("/:id/proof", h.ListProofs)
		}
		sops := api.Group("/sops")
		{
			sops.GET("", h.ListSOPs)
			sops.POST("", h.CreateSOP)
		}
	}
}

// CreateAlertRequest 创建告警请求
type CreateAlertRequest struct {
	Scenario    string    `json:"scenario" binding:"required"`
	Severity    string    `json:"severity" binding:"required"`
	CustomerID  string    `json:"customer_id" binding:"required"`
	AccountID   string    `json:"account_id" binding:"required"`
	Description string    `json:"description"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// CreateAlert 登记告警
func (h *TriageHandler) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	alert, err := h.service.CreateAlert(c.Request.Context(),
		domain.Scenario(req.Scenario), domain.Severity(req.Severity),
		req.CustomerID, req.AccountID, req.Description, req.TriggeredAt)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, alert)
}

// ListAlerts 分页查询告警
func (h *TriageHandler) ListAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	alerts, total, err := h.service.ListAlerts(c.Request.Context(),
		domain.AlertStatus(c.Query("status")), domain.Scenario(c.Query("scenario")), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"alerts": alerts, "total": total})
}

// GetAlert 查询告警与决议
func (h *TriageHandler) GetAlert(c *gin.Context) {
	alert, resolution, err := h.service.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"alert": alert, "resolution": resolution})
}

// InvestigateRequest 调查请求
type InvestigateRequest struct {
	Force bool `json:"force"`
}

// Investigate 触发调查流水线，返回决议
func (h *TriageHandler) Investigate(c *gin.Context) {
	var req InvestigateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
			return
		}
	}
	resolution, err := h.service.Investigate(c.Request.Context(), c.Param("id"), req.Force)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, resolution)
}

// Timeline 告警审计事件
func (h *TriageHandler) Timeline(c *gin.Context) {
	events, err := h.service.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, events)
}

// StreamEvents SSE 实时事件流
func (h *TriageHandler) StreamEvents(c *gin.Context) {
	ch, cancel := h.service.Subscribe(c.Param("id"))
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Kind), event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// SubmitProofRequest 补充材料提交请求
type SubmitProofRequest struct {
	DocumentKinds []string `json:"document_kinds" binding:"required"`
	SourceOfFunds string   `json:"source_of_funds"`
}

// SubmitProof 提交 RFI 补充材料
func (h *TriageHandler) SubmitProof(c *gin.Context) {
	var req SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	submission, err := h.service.SubmitProof(c.Request.Context(), c.Param("id"), req.DocumentKinds, req.SourceOfFunds)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, submission)
}

// ListProofs 材料提交记录
func (h *TriageHandler) ListProofs(c *gin.Context) {
	submissions, err := h.service.ListProofs(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, submissions)
}

// CreateSOPRequest 创建规则请求
type CreateSOPRequest struct {
	RuleID        string `json:"rule_id" binding:"required"`
	Scenario      string `json:"scenario" binding:"required"`
	RuleName      string `json:"rule_name" binding:"required"`
	ConditionText string `json:"condition_text" binding:"required"`
	Action        string `json:"action" binding:"required"`
	Priority      int    `json:"priority" binding:"required"`
	Active        *bool  `json:"active"`
}

// CreateSOP 新建/升版规则，条件越界语法直接 400
func (h *TriageHandler) CreateSOP(c *gin.Context) {
	var req CreateSOPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	sop := &domain.SOP{
		RuleID:        req.RuleID,
		Scenario:      domain.Scenario(req.Scenario),
		RuleName:      req.RuleName,
		ConditionText: req.ConditionText,
		Action:        domain.Action(req.Action),
		Priority:      req.Priority,
		Active:        active,
	}
	if err := h.service.CreateSOP(c.Request.Context(), sop); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, sop)
}

// ListSOPs 查询规则
func (h *TriageHandler) ListSOPs(c *gin.Context) {
	sops, err := h.service.ListSOPs(c.Request.Context(), domain.Scenario(c.Query("scenario")))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, sops)
}

func (h *TriageHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrConfiguration):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrInvestigationRunning):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	case errors.Is(err, domain.ErrEvidenceUnavailable):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, err.Error(), "")
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}
