// Package clinicaltrials 封装ClinicalTrials.gov的临床试验检索
package clinicaltrials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://clinicaltrials.gov/api/query/study_fields"
	DefaultMaxResults = 3
)

// Client ClinicalTrials.gov客户端（对外导出）
type Client struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

// NewClient 创建客户端（对外导出）
func NewClient(baseURL string, maxResults int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Trial 临床试验摘要（对外导出）
type Trial struct {
	NCT     string `json:"nct"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

type studyFieldsResponse struct {
	StudyFieldsResponse struct {
		StudyFields []struct {
			NCTId         []string `json:"NCTId"`
			BriefTitle    []string `json:"BriefTitle"`
			OverallStatus []string `json:"OverallStatus"`
			BriefSummary  []string `json:"BriefSummary"`
		} `json:"StudyFields"`
	} `json:"StudyFieldsResponse"`
}

// Search 检索相关临床试验（对外导出）
// 与原上游行为一致：请求失败时返回空列表并记录日志，由下游降级处理
func (c *Client) Search(ctx context.Context, query string) []*Trial {
	params := url.Values{}
	params.Set("expr", query)
	params.Set("fields", "NCTId,BriefTitle,OverallStatus,BriefSummary")
	params.Set("min_rnk", "1")
	params.Set("max_rnk", fmt.Sprintf("%d", c.maxResults))
	params.Set("fmt", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("ClinicalTrials.gov请求构建失败: %v", err)
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("ClinicalTrials.gov检索失败: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("ClinicalTrials.gov返回异常状态码: %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("ClinicalTrials.gov响应读取失败: %v", err)
		return nil
	}

	var data studyFieldsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		log.Printf("ClinicalTrials.gov响应解析失败: %v", err)
		return nil
	}

	trials := make([]*Trial, 0, len(data.StudyFieldsResponse.StudyFields))
	for _, study := range data.StudyFieldsResponse.StudyFields {
		trials = append(trials, &Trial{
			NCT:     first(study.NCTId),
			Title:   first(study.BriefTitle),
			Status:  first(study.OverallStatus),
			Summary: first(study.BriefSummary),
		})
	}
	return trials
}

// FormatTrials 将试验列表渲染为可读文本（对外导出）
func FormatTrials(trials []*Trial) string {
	if len(trials) == 0 {
		return ""
	}
	lines := make([]string, 0, len(trials)+1)
	lines = append(lines, "Relevant Clinical Trials (ClinicalTrials.gov):")
	for _, trial := range trials {
		line := fmt.Sprintf("- %s (Status: %s)", trial.Title, trial.Status)
		if trial.NCT != "" {
			line += fmt.Sprintf(" [NCT:%s]", trial.NCT)
		}
		if trial.Summary != "" {
			line += "\n  " + trial.Summary
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
