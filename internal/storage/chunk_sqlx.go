package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/med-pipeline/pkg/storage"
	"github.com/LENAX/med-pipeline/pkg/storage/dao"
)

// chunkRepo sqlx实现（小写，不导出）
type chunkRepo struct {
	db      *sqlx.DB
	dialect storage.Dialect
}

// NewChunkRepo 创建向量块存储实例（内部工厂方法）
func NewChunkRepo(db *sqlx.DB, dialect storage.Dialect) (storage.ChunkRepository, error) {
	repo := &chunkRepo{db: db, dialect: dialect}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// initSchema 初始化数据库表结构（内部方法）
func (r *chunkRepo) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vector_chunk (
		id VARCHAR(64) PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL,
		text TEXT NOT NULL,
		vector TEXT NOT NULL,
		create_time DATETIME NOT NULL
	);`
	_, err := r.db.Exec(r.dialect.CreateTableSQL(schema))
	return err
}

var chunkColumns = []string{"id", "run_id", "text", "vector", "create_time"}

// SaveChunks 批量保存文本块
func (r *chunkRepo) SaveChunks(ctx context.Context, chunks []*storage.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	query := r.dialect.UpsertSQL("vector_chunk", chunkColumns, "id", []string{"text", "vector"})
	for _, chunk := range chunks {
		vectorJSON, err := json.Marshal(chunk.Vector)
		if err != nil {
			return fmt.Errorf("序列化向量失败: %w", err)
		}
		row := &dao.ChunkDAO{
			ID:         chunk.ID,
			RunID:      chunk.RunID,
			Text:       chunk.Text,
			Vector:     string(vectorJSON),
			CreateTime: chunk.CreateTime,
		}
		if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("保存向量块失败: %w", err)
		}
	}
	return nil
}

// ListByRun 查询某次运行产生的文本块
func (r *chunkRepo) ListByRun(ctx context.Context, runID string) ([]*storage.ChunkRecord, error) {
	var rows []dao.ChunkDAO
	query := r.db.Rebind(`
	SELECT id, run_id, text, vector, create_time
	FROM vector_chunk WHERE run_id = ? ORDER BY create_time`)
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("查询向量块失败: %w", err)
	}

	chunks := make([]*storage.ChunkRecord, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		var vector []float32
		if err := json.Unmarshal([]byte(row.Vector), &vector); err != nil {
			return nil, fmt.Errorf("反序列化向量失败: %w", err)
		}
		chunks = append(chunks, &storage.ChunkRecord{
			ID:         row.ID,
			RunID:      row.RunID,
			Text:       row.Text,
			Vector:     vector,
			CreateTime: row.CreateTime,
		})
	}
	return chunks, nil
}

// DeleteByRun 删除某次运行的文本块
func (r *chunkRepo) DeleteByRun(ctx context.Context, runID string) error {
	query := r.db.Rebind(`DELETE FROM vector_chunk WHERE run_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, runID); err != nil {
		return fmt.Errorf("删除向量块失败: %w", err)
	}
	return nil
}
