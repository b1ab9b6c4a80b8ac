// Package storage 基于sqlx的存储实现
package storage

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/LENAX/med-pipeline/pkg/storage"
	"github.com/LENAX/med-pipeline/pkg/storage/mysql"
	"github.com/LENAX/med-pipeline/pkg/storage/postgres"
	"github.com/LENAX/med-pipeline/pkg/storage/sqlite"
)

// Repositories 存储Repository集合（内部使用）
type Repositories struct {
	Run   storage.RunRepository
	Chunk storage.ChunkRepository
	db    *sqlx.DB
}

// Options 数据库连接参数
type Options struct {
	Type            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewRepositories 创建所有Repository实例（内部工厂方法）
func NewRepositories(opts Options) (*Repositories, error) {
	dialect, err := dialectFor(opts.Type)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dialect.DriverName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	for _, stmt := range dialect.ConfigureDB() {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("数据库配置失败: %w", err)
		}
	}

	runRepo, err := NewRunRepo(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("创建RunRepository失败: %w", err)
	}
	chunkRepo, err := NewChunkRepo(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("创建ChunkRepository失败: %w", err)
	}

	return &Repositories{
		Run:   runRepo,
		Chunk: chunkRepo,
		db:    db,
	}, nil
}

// Close 关闭数据库连接（内部方法）
func (r *Repositories) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// dialectFor 根据配置选择方言（内部方法）
func dialectFor(dbType string) (storage.Dialect, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		return sqlite.NewSQLiteDialect(), nil
	case "postgres", "postgresql":
		return postgres.NewPostgresDialect(), nil
	case "mysql":
		return mysql.NewMySQLDialect(), nil
	default:
		return nil, fmt.Errorf("不支持的数据库类型: %s", dbType)
	}
}
