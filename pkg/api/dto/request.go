package dto

// AskRequest 医学问答请求
type AskRequest struct {
	Query string `json:"query" binding:"required"`
}

// HistoryQueryRequest 运行历史查询请求
type HistoryQueryRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// GetDefaultLimit 获取默认limit
func (r *HistoryQueryRequest) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 20
	}
	return r.Limit
}
