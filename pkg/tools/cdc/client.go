// Package cdc 从CDC检索页抓取指南链接
// CDC没有公开的检索API, 这里用goquery解析搜索结果页
package cdc

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultBaseURL    = "https://search.cdc.gov/search/"
	DefaultMaxResults = 3
)

// Guideline 一条指南检索结果（对外导出）
type Guideline struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client CDC指南检索客户端（对外导出）
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

// Search 抓取指南结果（对外导出）
// 页面结构变化或请求失败时退化为一条搜索入口链接, 不报错
func (c *Client) Search(ctx context.Context, query string) []*Guideline {
	searchURL := c.baseURL + "?" + url.Values{"query": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		log.Printf("CDC请求构建失败: %v", err)
		return c.fallback(query, searchURL)
	}
	req.Header.Set("User-Agent", "med-pipeline/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("CDC检索失败: %v", err)
		return c.fallback(query, searchURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("CDC返回异常状态码: %d", resp.StatusCode)
		return c.fallback(query, searchURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Printf("CDC结果页解析失败: %v", err)
		return c.fallback(query, searchURL)
	}

	guidelines := c.parseResults(doc)
	if len(guidelines) == 0 {
		return c.fallback(query, searchURL)
	}
	return guidelines
}

// parseResults 解析搜索结果条目（内部方法）
func (c *Client) parseResults(doc *goquery.Document) []*Guideline {
	var guidelines []*Guideline
	doc.Find(".searchResultsList .result, div.search-result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a").First()
		href, ok := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if !ok || title == "" {
			return true
		}
		guidelines = append(guidelines, &Guideline{
			Title:   title,
			URL:     href,
			Snippet: strings.TrimSpace(sel.Find("p, .description").First().Text()),
		})
		return len(guidelines) < c.maxResults
	})
	return guidelines
}

// fallback 退化为搜索入口链接（内部方法）
func (c *Client) fallback(query, searchURL string) []*Guideline {
	return []*Guideline{{
		Title: fmt.Sprintf("CDC search results for %q", query),
		URL:   searchURL,
	}}
}

// FormatGuidelines 渲染为可读文本（对外导出）
func FormatGuidelines(guidelines []*Guideline) string {
	if len(guidelines) == 0 {
		return ""
	}
	lines := make([]string, 0, len(guidelines)+1)
	lines = append(lines, "CDC Guidelines:")
	for _, g := range guidelines {
		line := fmt.Sprintf("- %s (%s)", g.Title, g.URL)
		if g.Snippet != "" {
			line += "\n  " + g.Snippet
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
