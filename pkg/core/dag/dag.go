package dag

import (
	"fmt"
	"sort"

	godag "github.com/begmaroman/go-dag"

	"github.com/LENAX/med-pipeline/pkg/core/pipeline"
)

// TaskDAG 任务依赖图（对外导出）
// 封装go-dag库，节点为Pipeline的静态任务定义
type TaskDAG struct {
	d *godag.DAG[*pipeline.Task]
}

// BuildDAG 从任务定义构建DAG（对外导出）
// tasks: Task ID -> 任务定义的映射
// dependencies: 后置Task ID -> 前置Task ID列表的映射
// 图结构非法时返回ConfigurationError，任何任务执行前即失败
func BuildDAG(tasks map[string]*pipeline.Task, dependencies map[string][]string) (*TaskDAG, error) {
	// 1. 校验依赖引用：每个被引用的依赖ID必须存在
	for taskID, depIDs := range dependencies {
		if _, exists := tasks[taskID]; !exists {
			return nil, pipeline.NewConfigurationError("依赖声明引用了不存在的任务: %s", taskID)
		}
		for _, depID := range depIDs {
			if _, exists := tasks[depID]; !exists {
				return nil, pipeline.NewConfigurationError("任务 %s 依赖了不存在的任务: %s", taskID, depID)
			}
		}
	}

	// 2. 构建临时邻接表，一次性检测循环
	// 避免在每次AddEdge时重复做递归检查
	graph := make(map[string][]string)
	for taskID := range tasks {
		graph[taskID] = make([]string, 0)
	}
	for taskID, depIDs := range dependencies {
		for _, depID := range depIDs {
			// 边方向：前置任务 -> 后置任务
			graph[depID] = append(graph[depID], taskID)
		}
	}

	if hasCycle, cyclePath := detectCycleDFS(graph); hasCycle {
		return nil, pipeline.NewConfigurationError("检测到循环依赖: %v", cyclePath)
	}

	// 3. 创建go-dag实例并添加所有节点和边
	d := godag.NewDAG[*pipeline.Task]()
	for taskID, t := range tasks {
		if _, err := d.AddVertex(t); err != nil {
			return nil, pipeline.NewConfigurationError("添加节点失败: Task ID=%s, 原因: %v", taskID, err)
		}
	}
	for taskID, depIDs := range dependencies {
		for _, depID := range depIDs {
			if err := d.AddEdge(depID, taskID); err != nil {
				return nil, pipeline.NewConfigurationError("添加边失败: %s -> %s, 原因: %v", depID, taskID, err)
			}
		}
	}

	return &TaskDAG{d: d}, nil
}

// detectCycleDFS 使用三色标记DFS检测图中是否存在循环
// graph: 邻接表，key是节点ID，value是该节点的所有子节点ID列表
func detectCycleDFS(graph map[string][]string) (bool, []string) {
	// 0=白色（未访问），1=灰色（正在访问），2=黑色（已访问）
	color := make(map[string]int)
	parent := make(map[string]string)
	cyclePath := make([]string, 0)

	var dfs func(nodeID string) bool
	dfs = func(nodeID string) bool {
		color[nodeID] = 1

		for _, childID := range graph[nodeID] {
			if color[childID] == 0 {
				parent[childID] = nodeID
				if dfs(childID) {
					return true
				}
			} else if color[childID] == 1 {
				// 灰色节点，存在后向边，检测到循环，构建循环路径
				cyclePath = append(cyclePath, childID)
				cur := nodeID
				for cur != childID && cur != "" {
					cyclePath = append(cyclePath, cur)
					cur = parent[cur]
				}
				cyclePath = append(cyclePath, childID)
				return true
			}
		}

		color[nodeID] = 2
		return false
	}

	for nodeID := range graph {
		if color[nodeID] == 0 {
			if dfs(nodeID) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// TopologicalSort 执行拓扑排序（对外导出）
// 使用Kahn算法，每一层的任务可以并行执行
func (td *TaskDAG) TopologicalSort() (*TopologicalOrder, error) {
	result := &TopologicalOrder{
		Levels: make([][]string, 0),
	}

	// 1. 计算每个节点的入度
	inDegree := make(map[string]int)
	vertices := td.d.GetVertices()
	for id := range vertices {
		parents, _ := td.GetParents(id)
		inDegree[id] = len(parents)
	}

	// 2. 找出所有入度为0的节点（根节点）
	queue := make([]string, 0)
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	// 3. 不断移除入度为0的节点，并更新其子节点的入度
	processed := 0
	for len(queue) > 0 {
		currentLevel := make([]string, 0, len(queue))
		nextQueue := make([]string, 0)

		for _, nodeID := range queue {
			currentLevel = append(currentLevel, nodeID)
			processed++

			children, _ := td.GetChildren(nodeID)
			for _, childID := range children {
				inDegree[childID]--
				if inDegree[childID] == 0 {
					nextQueue = append(nextQueue, childID)
				}
			}
		}

		sort.Strings(nextQueue)
		result.Levels = append(result.Levels, currentLevel)
		queue = nextQueue
	}

	// 4. 检查是否所有节点都被处理
	if processed != len(vertices) {
		return nil, fmt.Errorf("拓扑排序失败：存在未处理的节点（可能存在环）")
	}

	return result, nil
}

// GetChildren 获取节点的子节点ID列表（对外导出）
func (td *TaskDAG) GetChildren(nodeID string) ([]string, error) {
	children, err := td.d.GetChildren(nodeID)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(children))
	for id := range children {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// GetParents 获取节点的父节点ID列表（对外导出）
func (td *TaskDAG) GetParents(nodeID string) ([]string, error) {
	parents, err := td.d.GetParents(nodeID)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(parents))
	for id := range parents {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// GetVertices 获取所有节点（对外导出）
func (td *TaskDAG) GetVertices() map[string]*pipeline.Task {
	return td.d.GetVertices()
}

// GetRoots 获取所有根节点ID（入度为0的节点）（对外导出）
func (td *TaskDAG) GetRoots() []string {
	roots := td.d.GetRoots()
	result := make([]string, 0, len(roots))
	for id := range roots {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// GetVertex 获取指定节点的任务定义（对外导出）
func (td *TaskDAG) GetVertex(nodeID string) (*pipeline.Task, error) {
	return td.d.GetVertex(nodeID)
}

// TransitiveDescendants 获取节点的所有传递后代ID（对外导出）
// 某任务失败后，其直接和间接依赖者都不再执行
func (td *TaskDAG) TransitiveDescendants(nodeID string) []string {
	visited := make(map[string]bool)
	queue := []string{nodeID}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		children, err := td.GetChildren(cur)
		if err != nil {
			continue
		}
		for _, childID := range children {
			if !visited[childID] {
				visited[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	result := make([]string, 0, len(visited))
	for id := range visited {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Nodes 获取所有节点的展示视图（对外导出）
func (td *TaskDAG) Nodes() map[string]*Node {
	vertices := td.GetVertices()
	nodes := make(map[string]*Node, len(vertices))

	for id, t := range vertices {
		parents, _ := td.GetParents(id)
		children, _ := td.GetChildren(id)

		nodes[id] = &Node{
			ID:       id,
			Name:     t.Name,
			InDegree: len(parents),
			OutEdges: children,
		}
	}

	return nodes
}
