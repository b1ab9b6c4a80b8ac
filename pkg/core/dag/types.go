package dag

// Node DAG节点视图（对外导出）
// 供API层和CLI展示图结构使用
type Node struct {
	ID       string   // 节点ID（Task ID）
	Name     string   // 节点名称
	InDegree int      // 入度（依赖的前置任务数量）
	OutEdges []string // 出边（下游依赖该节点的Task ID列表）
}

// TopologicalOrder 拓扑排序结果（对外导出）
type TopologicalOrder struct {
	Levels [][]string // 每一层的Task ID列表，同层任务可以并行执行
}

// Flatten 展平为单一顺序（对外导出）
func (o *TopologicalOrder) Flatten() []string {
	flat := make([]string, 0)
	for _, level := range o.Levels {
		flat = append(flat, level...)
	}
	return flat
}
