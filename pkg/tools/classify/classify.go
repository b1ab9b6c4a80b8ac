// Package classify 医学问题类型的关键词分类
package classify

import (
	"strings"
)

// QueryType 问题类型标签（对外导出）
type QueryType string

const (
	TypeDiagnosis  QueryType = "diagnosis"
	TypeTreatment  QueryType = "treatment"
	TypePrognosis  QueryType = "prognosis"
	TypeDrugInfo   QueryType = "drug_info"
	TypePrevention QueryType = "prevention"
	TypeGeneral    QueryType = "general"
)

// 按优先级匹配, 先命中的类型生效
var typeKeywords = []struct {
	queryType QueryType
	keywords  []string
}{
	{TypeDiagnosis, []string{"diagnose", "diagnosis", "differential", "identify"}},
	{TypeTreatment, []string{"treat", "treatment", "manage", "therapy", "intervention"}},
	{TypePrognosis, []string{"prognosis", "outcome", "survival", "risk of recurrence"}},
	{TypeDrugInfo, []string{"drug", "medication", "dose", "dosage", "side effect", "adverse", "pharmacology"}},
	{TypePrevention, []string{"prevention", "prevent", "screening"}},
}

// Classify 将查询归入问题类型（对外导出）
func Classify(query string) QueryType {
	lower := strings.ToLower(query)
	for _, entry := range typeKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.queryType
			}
		}
	}
	return TypeGeneral
}

// 候选提取时跳过的通用词
var candidateStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "for": true,
	"and": true, "or": true, "in": true, "on": true, "with": true,
	"what": true, "is": true, "are": true, "how": true, "does": true,
	"drug": true, "medication": true, "dose": true, "dosage": true,
	"side": true, "effect": true, "effects": true, "adverse": true,
	"treatment": true, "therapy": true, "patient": true, "patients": true,
}

// DrugCandidates 提取可能是药物名称的词（对外导出）
// 只做粗筛, 实际是否为药物由RxNorm查询确认
func DrugCandidates(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	candidates := make([]string, 0, len(fields))
	seen := make(map[string]bool)
	for _, word := range fields {
		word = strings.Trim(word, ".,;:?!()\"'")
		if len(word) < 4 || candidateStopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		candidates = append(candidates, word)
	}
	return candidates
}
