package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/LENAX/med-pipeline/pkg/config"
	"github.com/LENAX/med-pipeline/pkg/core/engine"
	"github.com/LENAX/med-pipeline/pkg/tools/cdc"
	"github.com/LENAX/med-pipeline/pkg/tools/clinicaltrials"
	"github.com/LENAX/med-pipeline/pkg/tools/pubmed"
	"github.com/LENAX/med-pipeline/pkg/tools/rxnorm"
	"github.com/LENAX/med-pipeline/pkg/vector"
)

// echoLLM 将完整提示词原样返回, 便于断言上下文内容
type echoLLM struct{}

func (e *echoLLM) Chat(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}

const testEfetchXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>31223344</PMID>
      <Article>
        <ArticleTitle>Pembrolizumab dosing in advanced melanoma.</ArticleTitle>
        <Journal><Title>J Clin Oncol</Title><JournalIssue><PubDate><Year>2019</Year></PubDate></JournalIssue></Journal>
        <Abstract>
          <AbstractText>Pembrolizumab 200 mg every three weeks is effective. Flat dosing simplifies administration.</AbstractText>
        </Abstract>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"esearchresult":{"idlist":["31223344"]}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testEfetchXML))
	})
	mux.HandleFunc("/rxcui.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"idGroup":{"rxnormId":["1547545"]}}`))
	})
	mux.HandleFunc("/rxcui/1547545/properties.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{"name":"pembrolizumab","rxcui":"1547545","tty":"IN"}}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	external := httptest.NewServer(mux)
	t.Cleanup(external.Close)

	engineCfg := &config.EngineConfig{}
	engineCfg.MedPipeline.General.InstanceName = "test"
	engineCfg.MedPipeline.General.LogLevel = "info"
	engineCfg.MedPipeline.Storage.Database.Type = "sqlite"
	engineCfg.MedPipeline.Storage.Database.DSN = ":memory:"
	engineCfg.MedPipeline.Execution.WorkerConcurrency = 4
	engineCfg.MedPipeline.Execution.DefaultTaskTimeout = config.Duration(10 * time.Second)
	engineCfg.MedPipeline.LLM.Mock = true

	pipelineCfg := &config.PipelineConfig{}
	pipelineCfg.Pipeline.ID = "medical-qa"
	pipelineCfg.Pipeline.FinalTask = "synthesize"
	pipelineCfg.Pipeline.Tasks = []config.TaskDefinition{
		{TaskID: "classify", Operation: "classify_query"},
		{TaskID: "search", Operation: "search_literature"},
		{TaskID: "fetch", Operation: "fetch_abstracts", Dependencies: []string{"search"}},
		{TaskID: "drug", Operation: "lookup_drug"},
		{TaskID: "embed", Operation: "embed_index", Dependencies: []string{"fetch"}},
		{TaskID: "retrieve", Operation: "retrieve_chunks", Dependencies: []string{"embed"}},
		{TaskID: "synthesize", Operation: "generate_summary",
			Dependencies: []string{"retrieve", "drug", "classify"}},
	}

	tools := &engine.Toolset{
		PubMed: pubmed.NewClient(external.URL, 5, "", 5*time.Second),
		RxNorm: rxnorm.NewClient(external.URL, 5*time.Second),
		Trials: clinicaltrials.NewClient(external.URL+"/trials", 3, 5*time.Second),
		CDC:    cdc.NewClient(external.URL+"/cdc", 3, 5*time.Second),
		LLM:    &echoLLM{},
	}

	eng, err := engine.NewBuilder(engineCfg, pipelineCfg).
		WithEmbedder(vector.NewHashEmbedder(128)).
		WithToolset(tools).
		Build()
	if err != nil {
		t.Fatalf("引擎装配失败: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("引擎启动失败: %v", err)
	}
	t.Cleanup(eng.Stop)

	return SetupRouter(eng, "test")
}

func TestAskEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ask",
		strings.NewReader(`{"query":"pembrolizumab dosage"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("期望200, 实际%d: %s", recorder.Code, recorder.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法JSON: %v", err)
	}
	if resp["result"] == "" {
		t.Fatal("响应应包含result字段")
	}
	if !strings.Contains(resp["result"], "31223344") {
		t.Errorf("答案应包含检索到的PMID")
	}
}

func TestAskEndpoint_BadRequest(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("期望400, 实际%d", recorder.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法JSON: %v", err)
	}
	if resp["error"] == "" {
		t.Error("失败响应应包含error字段")
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("期望200, 实际%d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "healthy") {
		t.Errorf("健康检查响应错误: %s", recorder.Body.String())
	}
}

func TestPipelineEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pipeline", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("期望200, 实际%d", recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "synthesize") || !strings.Contains(body, "generate_summary") {
		t.Errorf("流水线详情缺少任务定义: %s", body)
	}
}
