package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/LENAX/med-pipeline/pkg/api/dto"
	"github.com/LENAX/med-pipeline/pkg/core/engine"
	"github.com/LENAX/med-pipeline/pkg/storage"
)

// PipelineHandler 流水线信息与运行历史处理器
type PipelineHandler struct {
	engine *engine.Engine
}

// NewPipelineHandler 创建PipelineHandler
func NewPipelineHandler(eng *engine.Engine) *PipelineHandler {
	return &PipelineHandler{engine: eng}
}

// Get 获取流水线定义
// GET /api/v1/pipeline
func (h *PipelineHandler) Get(c *gin.Context) {
	pipe := h.engine.Pipeline()

	taskIDs := make([]string, 0, len(pipe.Tasks))
	for taskID := range pipe.Tasks {
		taskIDs = append(taskIDs, taskID)
	}
	sort.Strings(taskIDs)

	tasks := make([]dto.TaskSummary, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		task := pipe.Tasks[taskID]
		summary := dto.TaskSummary{
			ID:           task.TaskID,
			Name:         task.Name,
			Operation:    task.Operation,
			Agent:        task.AgentRef,
			Dependencies: task.Dependencies,
		}
		if task.Timeout > 0 {
			summary.Timeout = task.Timeout.String()
		}
		tasks = append(tasks, summary)
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PipelineDetail{
		ID:           pipe.ID,
		Name:         pipe.Name,
		Description:  pipe.Description,
		FinalTask:    pipe.FinalTask,
		Tasks:        tasks,
		Dependencies: pipe.Dependencies(),
	}))
}

// ListRuns 列出最近的运行
// GET /api/v1/runs
func (h *PipelineHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()

	repo := h.engine.RunRepository()
	if repo == nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, "存储未配置"))
		return
	}

	var req dto.HistoryQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数不合法: %v", err)))
		return
	}

	records, err := repo.ListRecent(ctx, req.GetDefaultLimit())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询运行历史失败: %v", err)))
		return
	}

	items := make([]dto.RunSummary, 0, len(records))
	for _, record := range records {
		items = append(items, runSummaryFromRecord(record))
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.RunSummary]{
		Total:   len(items),
		Items:   items,
		HasMore: len(items) == req.GetDefaultLimit(),
	}))
}

// GetRun 获取运行详情
// GET /api/v1/runs/:id
func (h *PipelineHandler) GetRun(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	repo := h.engine.RunRepository()
	if repo == nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, "存储未配置"))
		return
	}

	record, err := repo.GetByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询运行失败: %v", err)))
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "运行不存在"))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RunDetail{
		RunSummary:   runSummaryFromRecord(record),
		Answer:       record.Answer,
		ErrorMessage: record.ErrorMessage,
	}))
}

// GetRunTasks 获取运行的任务结果
// GET /api/v1/runs/:id/tasks
func (h *PipelineHandler) GetRunTasks(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	repo := h.engine.RunRepository()
	if repo == nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, "存储未配置"))
		return
	}

	records, err := repo.GetTaskResults(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询任务结果失败: %v", err)))
		return
	}

	items := make([]dto.TaskRunDetail, 0, len(records))
	for _, record := range records {
		items = append(items, dto.TaskRunDetail{
			TaskID:       record.TaskID,
			Status:       record.Status,
			Empty:        record.Empty,
			Output:       record.Output,
			ErrorMessage: record.ErrorMessage,
			StartTime:    record.StartTime,
			EndTime:      record.EndTime,
		})
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.TaskRunDetail]{
		Total: len(items),
		Items: items,
	}))
}

func runSummaryFromRecord(record *storage.RunRecord) dto.RunSummary {
	summary := dto.RunSummary{
		ID:         record.ID,
		Query:      record.Query,
		Status:     record.Status,
		FailedTask: record.FailedTask,
		StartTime:  record.StartTime,
		EndTime:    record.EndTime,
	}
	if record.EndTime != nil {
		summary.Duration = record.EndTime.Sub(record.StartTime).String()
	}
	return summary
}
