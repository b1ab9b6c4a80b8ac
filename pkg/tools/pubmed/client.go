// Package pubmed 封装NCBI E-utilities的文献检索与摘要获取
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	DefaultRetMax  = 5

	toolName     = "med-pipeline"
	contactEmail = "med-pipeline@localhost"
)

// 查询简化时剔除的停用词
var stopWords = map[string]bool{"the": true, "a": true, "an": true}

// Client PubMed客户端（对外导出）
type Client struct {
	baseURL    string
	retMax     int
	apiKey     string
	httpClient *http.Client
}

// NewClient 创建PubMed客户端（对外导出）
// apiKey可为空（NCBI对无key请求限流更严格）
func NewClient(baseURL string, retMax int, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if retMax <= 0 {
		retMax = DefaultRetMax
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		retMax:     retMax,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// searchResponse esearch的JSON响应（内部结构）
type searchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// buildQuery 构建PubMed检索式
// 每个词使用[All Fields]限定，AND连接（不做MeSH映射）
func buildQuery(query string) string {
	terms := strings.Fields(strings.ToLower(query))
	fieldQueries := make([]string, 0, len(terms))
	for _, term := range terms {
		fieldQueries = append(fieldQueries, term+"[All Fields]")
	}
	return strings.Join(fieldQueries, " AND ")
}

// simplifyQuery 降级检索式：剔除停用词后直接AND连接
func simplifyQuery(query string) string {
	terms := make([]string, 0)
	for _, term := range strings.Fields(query) {
		if !stopWords[strings.ToLower(term)] {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, " AND ")
}

// Search 检索文献，返回PMID列表（对外导出）
// 未检索到文献返回空列表而非错误；优化检索式无结果时自动降级重试
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	pmids, err := c.search(ctx, buildQuery(query))
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		pmids, err = c.search(ctx, simplifyQuery(query))
		if err != nil {
			return nil, err
		}
	}

	if len(pmids) > c.retMax {
		pmids = pmids[:c.retMax]
	}
	return pmids, nil
}

// search 执行一次esearch请求（内部方法）
func (c *Client) search(ctx context.Context, term string) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", fmt.Sprintf("%d", c.retMax))
	params.Set("retmode", "json")
	params.Set("usehistory", "y")
	params.Set("tool", toolName)
	params.Set("email", contactEmail)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("PubMed检索失败: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析PubMed检索响应失败: %w", err)
	}
	return resp.ESearchResult.IDList, nil
}

// Fetch 获取指定PMID的文献详情（对外导出）
func (c *Client) Fetch(ctx context.Context, pmids []string) ([]*Article, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")
	params.Set("tool", toolName)
	params.Set("email", contactEmail)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("PubMed摘要获取失败: %w", err)
	}

	var set articleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("解析PubMed XML失败: %w", err)
	}

	articles := make([]*Article, 0, len(set.Articles))
	for i := range set.Articles {
		articles = append(articles, newArticle(&set.Articles[i]))
	}
	return articles, nil
}

// get 发起GET请求并读取响应体（内部方法）
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP状态码异常: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
