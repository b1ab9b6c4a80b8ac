package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleEfetchXML = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">31223344</PMID>
      <Article>
        <Journal>
          <Title>Journal of Clinical Oncology</Title>
          <JournalIssue>
            <PubDate><Year>2023</Year><Month>May</Month></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Pembrolizumab dosing in advanced melanoma</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Pembrolizumab is an anti-PD-1 antibody.</AbstractText>
          <AbstractText Label="CONCLUSION">Fixed dosing of 200 mg every 3 weeks is effective.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Smith</LastName><ForeName>Jane</ForeName></Author>
          <Author><LastName>Doe</LastName><ForeName>John</ForeName></Author>
        </AuthorList>
        <PublicationTypeList>
          <PublicationType>Randomized Controlled Trial</PublicationType>
        </PublicationTypeList>
      </Article>
      <MeshHeadingList>
        <MeshHeading><DescriptorName>Melanoma</DescriptorName></MeshHeading>
      </MeshHeadingList>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">31223344</ArticleId>
        <ArticleId IdType="doi">10.1000/test.doi</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

func newMockServer(t *testing.T, searchIDs string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/esearch.fcgi"):
			if r.URL.Query().Get("db") != "pubmed" {
				t.Errorf("esearch缺少db参数: %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"esearchresult":{"idlist":[` + searchIDs + `]}}`))
		case strings.HasPrefix(r.URL.Path, "/efetch.fcgi"):
			w.Header().Set("Content-Type", "text/xml")
			w.Write([]byte(sampleEfetchXML))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSearch(t *testing.T) {
	server := newMockServer(t, `"31223344","99887766"`)
	defer server.Close()

	client := NewClient(server.URL, 5, "", 2*time.Second)
	pmids, err := client.Search(context.Background(), "pembrolizumab dosage")
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}

	if len(pmids) != 2 || pmids[0] != "31223344" {
		t.Errorf("PMID列表错误，期望首位31223344，实际: %v", pmids)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	client := NewClient("http://unused", 5, "", time.Second)
	pmids, err := client.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("空查询不应报错: %v", err)
	}
	if len(pmids) != 0 {
		t.Errorf("空查询应返回空列表，实际: %v", pmids)
	}
}

func TestSearch_RetMaxLimit(t *testing.T) {
	server := newMockServer(t, `"1","2","3","4","5","6","7"`)
	defer server.Close()

	client := NewClient(server.URL, 3, "", time.Second)
	pmids, err := client.Search(context.Background(), "heart failure")
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	if len(pmids) != 3 {
		t.Errorf("应截断到retmax=3，实际: %d", len(pmids))
	}
}

func TestFetch(t *testing.T) {
	server := newMockServer(t, `"31223344"`)
	defer server.Close()

	client := NewClient(server.URL, 5, "", 2*time.Second)
	articles, err := client.Fetch(context.Background(), []string{"31223344"})
	if err != nil {
		t.Fatalf("获取摘要失败: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("文献数量错误，期望: 1, 实际: %d", len(articles))
	}

	a := articles[0]
	if a.PMID != "31223344" {
		t.Errorf("PMID错误: %s", a.PMID)
	}
	if a.Title != "Pembrolizumab dosing in advanced melanoma" {
		t.Errorf("标题错误: %s", a.Title)
	}
	if a.DOI != "10.1000/test.doi" {
		t.Errorf("DOI错误: %s", a.DOI)
	}
	if len(a.Authors) != 2 || a.Authors[0] != "Smith, Jane" {
		t.Errorf("作者错误: %v", a.Authors)
	}
	if a.AbstractSections["conclusion"] == "" {
		t.Error("缺少conclusion摘要段落")
	}
}

func TestFetch_EmptyPMIDs(t *testing.T) {
	client := NewClient("http://unused", 5, "", time.Second)
	articles, err := client.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("空PMID列表不应报错: %v", err)
	}
	if articles != nil {
		t.Errorf("空PMID列表应返回nil，实际: %v", articles)
	}
}

func TestFormatArticles(t *testing.T) {
	server := newMockServer(t, `"31223344"`)
	defer server.Close()

	client := NewClient(server.URL, 5, "", 2*time.Second)
	articles, err := client.Fetch(context.Background(), []string{"31223344"})
	if err != nil {
		t.Fatalf("获取摘要失败: %v", err)
	}

	text := FormatArticles(articles)
	for _, fragment := range []string{"PMID: 31223344", "Clinical Summary", "Fixed dosing"} {
		if !strings.Contains(text, fragment) {
			t.Errorf("格式化输出缺少片段 %q", fragment)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	got := buildQuery("Pembrolizumab Dosage")
	want := "pembrolizumab[All Fields] AND dosage[All Fields]"
	if got != want {
		t.Errorf("检索式错误，期望: %s, 实际: %s", want, got)
	}
}

func TestSimplifyQuery(t *testing.T) {
	got := simplifyQuery("the heart failure")
	want := "heart AND failure"
	if got != want {
		t.Errorf("降级检索式错误，期望: %s, 实际: %s", want, got)
	}
}
