// Package rxnorm 封装RxNorm REST API的药物信息查询
package rxnorm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

// 相关概念查询的TTY类型：同义词、品牌名、品牌包装
var relatedTypes = []string{"SY", "BN", "BPCK"}

// Client RxNorm客户端（对外导出）
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建RxNorm客户端（对外导出）
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DrugInfo 结构化药物信息（对外导出）
type DrugInfo struct {
	Name     string
	RxCUI    string
	TermType string
	Synonyms []string
	Brands   []string
}

// Found 是否查询到了药物（对外导出）
func (d *DrugInfo) Found() bool {
	return d != nil && d.RxCUI != ""
}

type rxcuiResponse struct {
	IDGroup struct {
		RxNormIDs []string `json:"rxnormId"`
	} `json:"idGroup"`
}

type propertiesResponse struct {
	Properties struct {
		Name  string `json:"name"`
		RxCUI string `json:"rxcui"`
		TTY   string `json:"tty"`
	} `json:"properties"`
}

type relatedResponse struct {
	RelatedGroup struct {
		ConceptGroups []struct {
			TTY      string `json:"tty"`
			Concepts []struct {
				Name string `json:"name"`
			} `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"relatedGroup"`
}

// Lookup 查询药物信息（对外导出）
// 流程: 名称 -> RxCUI -> 属性 -> 相关概念（SY/BN/BPCK）
// 未收录的名称返回RxCUI为空的DrugInfo而非错误
func (c *Client) Lookup(ctx context.Context, name string) (*DrugInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return &DrugInfo{}, nil
	}

	// 1. 获取RxCUI
	params := url.Values{}
	params.Set("name", name)
	body, err := c.get(ctx, "/rxcui.json", params)
	if err != nil {
		return nil, fmt.Errorf("查询RxCUI失败: %w", err)
	}
	var rxcuiResp rxcuiResponse
	if err := json.Unmarshal(body, &rxcuiResp); err != nil {
		return nil, fmt.Errorf("解析RxCUI响应失败: %w", err)
	}
	if len(rxcuiResp.IDGroup.RxNormIDs) == 0 {
		return &DrugInfo{Name: name}, nil
	}
	rxcui := rxcuiResp.IDGroup.RxNormIDs[0]

	// 2. 获取药物属性
	body, err = c.get(ctx, fmt.Sprintf("/rxcui/%s/properties.json", rxcui), nil)
	if err != nil {
		return nil, fmt.Errorf("查询药物属性失败: %w", err)
	}
	var propsResp propertiesResponse
	if err := json.Unmarshal(body, &propsResp); err != nil {
		return nil, fmt.Errorf("解析药物属性失败: %w", err)
	}

	info := &DrugInfo{
		Name:     propsResp.Properties.Name,
		RxCUI:    rxcui,
		TermType: propsResp.Properties.TTY,
	}

	// 3. 获取相关概念（成分级条目TTY=IN无相关概念，跳过）
	if info.TermType != "" && info.TermType != "IN" {
		for _, relType := range relatedTypes {
			params := url.Values{}
			params.Set("tty", relType)
			body, err = c.get(ctx, fmt.Sprintf("/rxcui/%s/related.json", rxcui), params)
			if err != nil {
				return nil, fmt.Errorf("查询相关概念失败: %w", err)
			}
			var relResp relatedResponse
			if err := json.Unmarshal(body, &relResp); err != nil {
				return nil, fmt.Errorf("解析相关概念失败: %w", err)
			}

			for _, group := range relResp.RelatedGroup.ConceptGroups {
				for _, concept := range group.Concepts {
					term := concept.Name
					if term == "" {
						continue
					}
					switch group.TTY {
					case "SY":
						if !contains(info.Synonyms, term) {
							info.Synonyms = append(info.Synonyms, term)
						}
					case "BN", "BPCK":
						if !contains(info.Brands, term) {
							info.Brands = append(info.Brands, term)
						}
					}
				}
			}
		}
	}

	return info, nil
}

// Format 将药物信息渲染为可读文本（对外导出）
// 保留RxCUI标识，供下游合成任务引用
func (d *DrugInfo) Format() string {
	if !d.Found() {
		if d.Name != "" {
			return fmt.Sprintf("No RxCUI found for '%s'.", d.Name)
		}
		return "No drug name provided."
	}

	tty := d.TermType
	if tty == "" {
		tty = "N/A"
	}
	synonyms := "N/A"
	if len(d.Synonyms) > 0 {
		synonyms = strings.Join(d.Synonyms, ", ")
	}
	brands := "N/A"
	if len(d.Brands) > 0 {
		brands = strings.Join(d.Brands, ", ")
	}

	reasoning := make([]string, 0, 4)
	if d.TermType == "IN" {
		reasoning = append(reasoning, fmt.Sprintf("%s is an ingredient-level entry in RxNorm, representing the active substance.", d.Name))
	} else if d.TermType != "" {
		reasoning = append(reasoning, fmt.Sprintf("%s is classified as '%s' in RxNorm, which may indicate a brand, pack, or synonym.", d.Name, d.TermType))
	}
	if len(d.Brands) > 0 {
		reasoning = append(reasoning, "Common brand names include: "+strings.Join(d.Brands, ", ")+".")
	}
	if len(d.Synonyms) > 0 {
		shown := d.Synonyms
		suffix := "."
		if len(shown) > 5 {
			shown = shown[:5]
			suffix = "..."
		}
		reasoning = append(reasoning, "Synonyms or alternative names: "+strings.Join(shown, ", ")+suffix)
	}
	if len(d.Brands) == 0 && len(d.Synonyms) == 0 {
		reasoning = append(reasoning, "No brand or synonym information was found for this entry.")
	}
	reasoning = append(reasoning, "Always verify drug information with a healthcare provider or pharmacist, especially for dosing, interactions, and contraindications.")

	return fmt.Sprintf(
		"Drug Name: %s\nTerm Type: %s\nRxCUI: %s\nSynonyms: %s\nBrand Names: %s\n\nClinical Reasoning & Relevance:\n- %s",
		d.Name, tty, d.RxCUI, synonyms, brands, strings.Join(reasoning, "\n- "))
}

// get 发起GET请求并读取响应体（内部方法）
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
