// Package storage 运行记录与向量块的持久化接口
package storage

// Dialect SQL方言接口（对外导出）
// 封装不同数据库的SQL语法差异
type Dialect interface {
	// Name 返回方言名称（如 "sqlite", "mysql", "postgres"）
	Name() string

	// DriverName 返回sqlx驱动名
	DriverName() string

	// UpsertSQL 返回INSERT或UPDATE的SQL语句
	// columns为全部列, conflictColumn为冲突判断列, updateColumns为冲突时更新的列
	UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string

	// CreateTableSQL 将通用DDL转换为该方言的DDL
	CreateTableSQL(schema string) string

	// ConfigureDB 返回建连后需要执行的SQL（如SQLite的PRAGMA）
	ConfigureDB() []string
}
