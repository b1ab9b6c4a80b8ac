package medpipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LENAX/med-pipeline/pkg/api/dto"
)

// Client HTTP API客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New 创建API客户端
// 问答请求同步等待整条流水线, 超时需足够宽裕
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Ask 提交医学问题
func (c *Client) Ask(query string) (*dto.AskResponse, error) {
	body, err := json.Marshal(dto.AskRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+"/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp dto.AskErrorResponse
		if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
			if errResp.FailedTask != "" {
				return nil, fmt.Errorf("%s (失败任务: %s)", errResp.Error, errResp.FailedTask)
			}
			return nil, fmt.Errorf("%s", errResp.Error)
		}
		return nil, fmt.Errorf("服务端返回%d: %s", resp.StatusCode, string(data))
	}

	var askResp dto.AskResponse
	if err := json.Unmarshal(data, &askResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w, body: %s", err, string(data))
	}
	return &askResp, nil
}

// GetPipeline 获取流水线定义
func (c *Client) GetPipeline() (*dto.PipelineDetail, error) {
	var resp dto.APIResponse[dto.PipelineDetail]
	if err := c.get("/api/v1/pipeline", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// ListRuns 查询最近的运行记录
func (c *Client) ListRuns(limit int) (*dto.ListResponse[dto.RunSummary], error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	path := "/api/v1/runs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp dto.APIResponse[dto.ListResponse[dto.RunSummary]]
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetRun 获取运行详情
func (c *Client) GetRun(id string) (*dto.RunDetail, error) {
	var resp dto.APIResponse[dto.RunDetail]
	if err := c.get("/api/v1/runs/"+id, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// GetRunTasks 获取运行的任务结果
func (c *Client) GetRunTasks(id string) (*dto.ListResponse[dto.TaskRunDetail], error) {
	var resp dto.APIResponse[dto.ListResponse[dto.TaskRunDetail]]
	if err := c.get("/api/v1/runs/"+id+"/tasks", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

// Health 健康检查
func (c *Client) Health() (*dto.HealthResponse, error) {
	var resp dto.APIResponse[dto.HealthResponse]
	if err := c.get("/health", &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return &resp.Data, nil
}

func (c *Client) get(path string, result interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("解析响应失败: %w, body: %s", err, string(body))
	}
	return nil
}
