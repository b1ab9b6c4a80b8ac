package rxnorm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newMockRxNormServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/rxcui.json":
			if r.URL.Query().Get("name") == "pembrolizumab" {
				w.Write([]byte(`{"idGroup":{"rxnormId":["1547545"]}}`))
				return
			}
			w.Write([]byte(`{"idGroup":{}}`))
		case r.URL.Path == "/rxcui/1547545/properties.json":
			w.Write([]byte(`{"properties":{"name":"pembrolizumab","rxcui":"1547545","tty":"IN"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestLookup(t *testing.T) {
	server := newMockRxNormServer(t)
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second)
	info, err := client.Lookup(context.Background(), "pembrolizumab")
	if err != nil {
		t.Fatalf("药物查询失败: %v", err)
	}

	if !info.Found() {
		t.Fatal("期望查询到药物")
	}
	if info.RxCUI != "1547545" {
		t.Errorf("RxCUI错误，期望: 1547545, 实际: %s", info.RxCUI)
	}
	// TTY=IN的成分级条目不查询相关概念
	if len(info.Synonyms) != 0 || len(info.Brands) != 0 {
		t.Errorf("成分级条目不应有相关概念: synonyms=%v, brands=%v", info.Synonyms, info.Brands)
	}
}

func TestLookup_NotFound(t *testing.T) {
	server := newMockRxNormServer(t)
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second)
	info, err := client.Lookup(context.Background(), "notadrug")
	if err != nil {
		t.Fatalf("未收录药物不应报错: %v", err)
	}
	if info.Found() {
		t.Error("未收录药物不应返回RxCUI")
	}
	if !strings.Contains(info.Format(), "No RxCUI found") {
		t.Errorf("格式化输出错误: %s", info.Format())
	}
}

func TestLookup_RelatedConcepts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/rxcui.json":
			w.Write([]byte(`{"idGroup":{"rxnormId":["202433"]}}`))
		case r.URL.Path == "/rxcui/202433/properties.json":
			w.Write([]byte(`{"properties":{"name":"Keytruda","rxcui":"202433","tty":"BN"}}`))
		case r.URL.Path == "/rxcui/202433/related.json":
			switch r.URL.Query().Get("tty") {
			case "SY":
				w.Write([]byte(`{"relatedGroup":{"conceptGroup":[{"tty":"SY","conceptProperties":[{"name":"MK-3475"}]}]}}`))
			case "BN":
				w.Write([]byte(`{"relatedGroup":{"conceptGroup":[{"tty":"BN","conceptProperties":[{"name":"Keytruda"}]}]}}`))
			default:
				w.Write([]byte(`{"relatedGroup":{}}`))
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second)
	info, err := client.Lookup(context.Background(), "Keytruda")
	if err != nil {
		t.Fatalf("药物查询失败: %v", err)
	}

	if len(info.Synonyms) != 1 || info.Synonyms[0] != "MK-3475" {
		t.Errorf("同义词错误: %v", info.Synonyms)
	}
	if len(info.Brands) != 1 || info.Brands[0] != "Keytruda" {
		t.Errorf("品牌名错误: %v", info.Brands)
	}

	text := info.Format()
	for _, fragment := range []string{"RxCUI: 202433", "MK-3475", "Keytruda"} {
		if !strings.Contains(text, fragment) {
			t.Errorf("格式化输出缺少片段 %q: %s", fragment, text)
		}
	}
}

func TestFormat_EmptyName(t *testing.T) {
	info := &DrugInfo{}
	if info.Format() != "No drug name provided." {
		t.Errorf("空药物格式化错误: %s", info.Format())
	}
}
