package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/med-pipeline/pkg/storage"
	"github.com/LENAX/med-pipeline/pkg/storage/dao"
)

// runRepo sqlx实现（小写，不导出）
type runRepo struct {
	db      *sqlx.DB
	dialect storage.Dialect
}

// NewRunRepo 创建运行记录存储实例（内部工厂方法）
func NewRunRepo(db *sqlx.DB, dialect storage.Dialect) (storage.RunRepository, error) {
	repo := &runRepo{db: db, dialect: dialect}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// initSchema 初始化数据库表结构（内部方法）
func (r *runRepo) initSchema() error {
	runTable := `
	CREATE TABLE IF NOT EXISTS pipeline_run (
		id VARCHAR(64) PRIMARY KEY,
		pipeline_id VARCHAR(128) NOT NULL,
		query TEXT NOT NULL,
		status VARCHAR(32) NOT NULL,
		answer TEXT,
		failed_task VARCHAR(128),
		error_message TEXT,
		start_time DATETIME,
		end_time DATETIME,
		create_time DATETIME NOT NULL
	);`
	taskTable := `
	CREATE TABLE IF NOT EXISTS task_run (
		run_id VARCHAR(64) NOT NULL,
		task_id VARCHAR(128) NOT NULL,
		status VARCHAR(32) NOT NULL,
		output TEXT,
		empty BOOLEAN NOT NULL,
		error_message TEXT,
		start_time DATETIME,
		end_time DATETIME,
		PRIMARY KEY (run_id, task_id)
	);`
	for _, schema := range []string{runTable, taskTable} {
		if _, err := r.db.Exec(r.dialect.CreateTableSQL(schema)); err != nil {
			return err
		}
	}
	return nil
}

var runColumns = []string{
	"id", "pipeline_id", "query", "status", "answer",
	"failed_task", "error_message", "start_time", "end_time", "create_time",
}

var runUpdateColumns = []string{
	"status", "answer", "failed_task", "error_message", "start_time", "end_time",
}

// Save 保存或更新运行记录
func (r *runRepo) Save(ctx context.Context, run *storage.RunRecord) error {
	row := &dao.RunDAO{
		ID:         run.ID,
		PipelineID: run.PipelineID,
		Query:      run.Query,
		Status:     run.Status,
		CreateTime: run.CreateTime,
	}
	row.Answer = nullString(run.Answer)
	row.FailedTask = nullString(run.FailedTask)
	row.ErrorMessage = nullString(run.ErrorMessage)
	row.StartTime = nullTime(&run.StartTime)
	row.EndTime = nullTime(run.EndTime)

	query := r.dialect.UpsertSQL("pipeline_run", runColumns, "id", runUpdateColumns)
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("保存运行记录失败: %w", err)
	}
	return nil
}

var taskRunColumns = []string{
	"run_id", "task_id", "status", "output", "empty",
	"error_message", "start_time", "end_time",
}

var taskRunUpdateColumns = []string{
	"status", "output", "empty", "error_message", "start_time", "end_time",
}

// SaveTaskResults 保存运行中所有任务的结果
func (r *runRepo) SaveTaskResults(ctx context.Context, results []*storage.TaskRunRecord) error {
	if len(results) == 0 {
		return nil
	}
	query := r.dialect.UpsertSQL("task_run", taskRunColumns, "run_id, task_id", taskRunUpdateColumns)
	for _, result := range results {
		row := &dao.TaskRunDAO{
			RunID:        result.RunID,
			TaskID:       result.TaskID,
			Status:       result.Status,
			Output:       nullString(result.Output),
			Empty:        result.Empty,
			ErrorMessage: nullString(result.ErrorMessage),
			StartTime:    nullTime(result.StartTime),
			EndTime:      nullTime(result.EndTime),
		}
		if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("保存任务结果失败 task=%s: %w", result.TaskID, err)
		}
	}
	return nil
}

// GetByID 根据ID查询运行记录
func (r *runRepo) GetByID(ctx context.Context, id string) (*storage.RunRecord, error) {
	var row dao.RunDAO
	query := r.db.Rebind(`
	SELECT id, pipeline_id, query, status, answer, failed_task, error_message, start_time, end_time, create_time
	FROM pipeline_run WHERE id = ?`)
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	return runFromDAO(&row), nil
}

// GetTaskResults 查询运行的任务结果列表
func (r *runRepo) GetTaskResults(ctx context.Context, runID string) ([]*storage.TaskRunRecord, error) {
	var rows []dao.TaskRunDAO
	query := r.db.Rebind(`
	SELECT run_id, task_id, status, output, empty, error_message, start_time, end_time
	FROM task_run WHERE run_id = ? ORDER BY task_id`)
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("查询任务结果失败: %w", err)
	}

	results := make([]*storage.TaskRunRecord, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		record := &storage.TaskRunRecord{
			RunID:        row.RunID,
			TaskID:       row.TaskID,
			Status:       row.Status,
			Output:       row.Output.String,
			Empty:        row.Empty,
			ErrorMessage: row.ErrorMessage.String,
		}
		if row.StartTime.Valid {
			record.StartTime = &row.StartTime.Time
		}
		if row.EndTime.Valid {
			record.EndTime = &row.EndTime.Time
		}
		results = append(results, record)
	}
	return results, nil
}

// ListRecent 按创建时间倒序查询最近的运行记录
func (r *runRepo) ListRecent(ctx context.Context, limit int) ([]*storage.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []dao.RunDAO
	query := r.db.Rebind(`
	SELECT id, pipeline_id, query, status, answer, failed_task, error_message, start_time, end_time, create_time
	FROM pipeline_run ORDER BY create_time DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("查询运行记录列表失败: %w", err)
	}

	runs := make([]*storage.RunRecord, 0, len(rows))
	for i := range rows {
		runs = append(runs, runFromDAO(&rows[i]))
	}
	return runs, nil
}

// runFromDAO 表行转业务实体（内部方法）
func runFromDAO(row *dao.RunDAO) *storage.RunRecord {
	run := &storage.RunRecord{
		ID:           row.ID,
		PipelineID:   row.PipelineID,
		Query:        row.Query,
		Status:       row.Status,
		Answer:       row.Answer.String,
		FailedTask:   row.FailedTask.String,
		ErrorMessage: row.ErrorMessage.String,
		CreateTime:   row.CreateTime,
	}
	if row.StartTime.Valid {
		run.StartTime = row.StartTime.Time
	}
	if row.EndTime.Valid {
		run.EndTime = &row.EndTime.Time
	}
	return run
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
