package dag

import (
	"errors"
	"testing"

	"github.com/LENAX/med-pipeline/pkg/core/pipeline"
)

func makeTasks(ids ...string) map[string]*pipeline.Task {
	tasks := make(map[string]*pipeline.Task, len(ids))
	for _, id := range ids {
		tasks[id] = &pipeline.Task{TaskID: id, Name: id}
	}
	return tasks
}

func TestBuildDAG(t *testing.T) {
	tasks := makeTasks("search", "fetch")
	dependencies := map[string][]string{
		"fetch": {"search"},
	}

	d, err := BuildDAG(tasks, dependencies)
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	if len(d.GetVertices()) != 2 {
		t.Fatalf("节点数量错误，期望: 2, 实际: %d", len(d.GetVertices()))
	}

	parents, err := d.GetParents("fetch")
	if err != nil {
		t.Fatalf("获取父节点失败: %v", err)
	}
	if len(parents) != 1 || parents[0] != "search" {
		t.Errorf("fetch父节点错误，期望: [search], 实际: %v", parents)
	}

	children, err := d.GetChildren("search")
	if err != nil {
		t.Fatalf("获取子节点失败: %v", err)
	}
	if len(children) != 1 || children[0] != "fetch" {
		t.Errorf("search子节点错误，期望: [fetch], 实际: %v", children)
	}
}

func TestBuildDAG_MissingDependency(t *testing.T) {
	tasks := makeTasks("fetch")
	dependencies := map[string][]string{
		"fetch": {"search"},
	}

	_, err := BuildDAG(tasks, dependencies)
	if err == nil {
		t.Fatal("期望返回配置错误（依赖不存在），但未返回")
	}

	var cfgErr *pipeline.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("错误类型错误，期望ConfigurationError，实际: %T", err)
	}
}

func TestBuildDAG_Cycle(t *testing.T) {
	tasks := makeTasks("a", "b", "c")
	dependencies := map[string][]string{
		"a": {"c"},
		"b": {"a"},
		"c": {"b"},
	}

	_, err := BuildDAG(tasks, dependencies)
	if err == nil {
		t.Fatal("期望返回配置错误（循环依赖），但未返回")
	}

	var cfgErr *pipeline.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("错误类型错误，期望ConfigurationError，实际: %T", err)
	}
}

func TestTopologicalSort(t *testing.T) {
	// 文献分支和药物分支并行，最终汇入synthesize
	tasks := makeTasks("search", "fetch", "drug", "embed", "retrieve", "synthesize")
	dependencies := map[string][]string{
		"fetch":      {"search"},
		"embed":      {"fetch"},
		"retrieve":   {"embed"},
		"synthesize": {"retrieve", "drug"},
	}

	d, err := BuildDAG(tasks, dependencies)
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	order, err := d.TopologicalSort()
	if err != nil {
		t.Fatalf("拓扑排序失败: %v", err)
	}

	// 校验拓扑性质：每个任务必须出现在其所有依赖之后
	position := make(map[string]int)
	for i, id := range order.Flatten() {
		position[id] = i
	}
	if len(position) != len(tasks) {
		t.Fatalf("拓扑排序节点数量错误，期望: %d, 实际: %d", len(tasks), len(position))
	}
	for taskID, deps := range dependencies {
		for _, dep := range deps {
			if position[dep] >= position[taskID] {
				t.Errorf("拓扑顺序违反依赖: %s 应在 %s 之前", dep, taskID)
			}
		}
	}

	// 第一层应包含两个独立分支的根节点
	if len(order.Levels[0]) != 2 {
		t.Errorf("第一层节点数量错误，期望: 2（search和drug）, 实际: %v", order.Levels[0])
	}
}

func TestTransitiveDescendants(t *testing.T) {
	tasks := makeTasks("search", "fetch", "drug", "synthesize")
	dependencies := map[string][]string{
		"fetch":      {"search"},
		"synthesize": {"fetch", "drug"},
	}

	d, err := BuildDAG(tasks, dependencies)
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	descendants := d.TransitiveDescendants("search")
	expected := []string{"fetch", "synthesize"}
	if len(descendants) != len(expected) {
		t.Fatalf("传递后代数量错误，期望: %v, 实际: %v", expected, descendants)
	}
	for i, id := range expected {
		if descendants[i] != id {
			t.Errorf("传递后代错误，期望: %v, 实际: %v", expected, descendants)
		}
	}

	// drug分支不受search影响
	for _, id := range descendants {
		if id == "drug" {
			t.Error("drug不依赖search，不应出现在传递后代中")
		}
	}
}

func TestGetRoots(t *testing.T) {
	tasks := makeTasks("search", "fetch", "drug")
	dependencies := map[string][]string{
		"fetch": {"search"},
	}

	d, err := BuildDAG(tasks, dependencies)
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	roots := d.GetRoots()
	if len(roots) != 2 {
		t.Fatalf("根节点数量错误，期望: 2, 实际: %v", roots)
	}
	if roots[0] != "drug" || roots[1] != "search" {
		t.Errorf("根节点错误，期望: [drug search], 实际: %v", roots)
	}
}
