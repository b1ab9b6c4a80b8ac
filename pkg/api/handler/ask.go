package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/LENAX/med-pipeline/pkg/api/dto"
	"github.com/LENAX/med-pipeline/pkg/core/engine"
	"github.com/LENAX/med-pipeline/pkg/core/operation"
	"github.com/LENAX/med-pipeline/pkg/core/pipeline"
)

// AskHandler 医学问答处理器
type AskHandler struct {
	engine *engine.Engine
}

// NewAskHandler 创建AskHandler
func NewAskHandler(eng *engine.Engine) *AskHandler {
	return &AskHandler{engine: eng}
}

// Ask 提交医学问题, 同步等待流水线产出答案
// POST /ask
func (h *AskHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.AskErrorResponse{
			Error: "request body must be JSON with a non-empty 'query' field",
		})
		return
	}

	run, err := h.engine.AskQuery(c.Request.Context(), req.Query)
	if err != nil {
		resp := dto.AskErrorResponse{Error: err.Error()}
		if run != nil {
			resp.FailedTask = run.FailedTask
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	resp := dto.AskResponse{
		Result:   run.Answer,
		RunID:    run.ID,
		Duration: run.Duration().String(),
	}
	// 分类任务的ID由流水线配置决定, 按operation定位
	for taskID, task := range h.engine.Pipeline().Tasks {
		if task.Operation != operation.KeyClassifyQuery {
			continue
		}
		if classified, exists := run.GetResult(taskID); exists && classified.Status == pipeline.TaskStatusSuccess {
			resp.QueryType = classified.Output
		}
		break
	}
	c.JSON(http.StatusOK, resp)
}
