package pubmed

import (
	"fmt"
	"strings"
)

// articleSet efetch返回的XML根结构（内部结构）
type articleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title   string `xml:"ArticleTitle"`
			Journal struct {
				Title        string `xml:"Title"`
				JournalIssue struct {
					PubDate struct {
						Year  string `xml:"Year"`
						Month string `xml:"Month"`
						Day   string `xml:"Day"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			Abstract struct {
				Sections []struct {
					Label string `xml:"Label,attr"`
					Text  string `xml:",chardata"`
				} `xml:"AbstractText"`
			} `xml:"Abstract"`
			AuthorList struct {
				Authors []struct {
					LastName string `xml:"LastName"`
					ForeName string `xml:"ForeName"`
				} `xml:"Author"`
			} `xml:"AuthorList"`
			PublicationTypeList struct {
				Types []string `xml:"PublicationType"`
			} `xml:"PublicationTypeList"`
		} `xml:"Article"`
		MeshHeadingList struct {
			Headings []struct {
				Descriptor string `xml:"DescriptorName"`
			} `xml:"MeshHeading"`
		} `xml:"MeshHeadingList"`
	} `xml:"MedlineCitation"`
	PubmedData struct {
		ArticleIDs []struct {
			IDType string `xml:"IdType,attr"`
			Value  string `xml:",chardata"`
		} `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

// Article 结构化的文献信息（对外导出）
type Article struct {
	PMID             string
	Title            string
	Journal          string
	Authors          []string
	Date             string
	DOI              string
	PublicationTypes []string
	MeshTerms        []string
	AbstractSections map[string]string // 小写Label -> 正文
	sectionOrder     []string
}

// newArticle 从XML结构构建Article（内部方法）
func newArticle(raw *pubmedArticle) *Article {
	cit := &raw.MedlineCitation
	a := &Article{
		PMID:             strings.TrimSpace(cit.PMID),
		Title:            strings.TrimSpace(cit.Article.Title),
		Journal:          strings.TrimSpace(cit.Article.Journal.Title),
		AbstractSections: make(map[string]string),
	}

	for _, author := range cit.Article.AuthorList.Authors {
		if author.LastName != "" && author.ForeName != "" {
			a.Authors = append(a.Authors, author.LastName+", "+author.ForeName)
		}
	}

	for _, pubType := range cit.Article.PublicationTypeList.Types {
		if pubType != "" {
			a.PublicationTypes = append(a.PublicationTypes, pubType)
		}
	}

	for _, heading := range cit.MeshHeadingList.Headings {
		if heading.Descriptor != "" {
			a.MeshTerms = append(a.MeshTerms, heading.Descriptor)
		}
	}

	pubDate := cit.Article.Journal.JournalIssue.PubDate
	dateParts := make([]string, 0, 3)
	for _, part := range []string{pubDate.Year, pubDate.Month, pubDate.Day} {
		if part != "" {
			dateParts = append(dateParts, part)
		}
	}
	a.Date = strings.Join(dateParts, " ")

	for _, id := range raw.PubmedData.ArticleIDs {
		if id.IDType == "doi" {
			a.DOI = strings.TrimSpace(id.Value)
			break
		}
	}

	for _, section := range cit.Article.Abstract.Sections {
		label := strings.ToLower(section.Label)
		if label == "" {
			label = "text"
		}
		text := strings.TrimSpace(section.Text)
		if text == "" {
			continue
		}
		if _, exists := a.AbstractSections[label]; !exists {
			a.sectionOrder = append(a.sectionOrder, label)
		}
		a.AbstractSections[label] = text
	}

	return a
}

// keySummary 提取结论性内容（内部方法）
// 优先级: conclusion > results > 全文摘要截断
func (a *Article) keySummary() string {
	if text, exists := a.AbstractSections["conclusion"]; exists {
		return "Key Conclusion: " + text
	}
	if text, exists := a.AbstractSections["conclusions"]; exists {
		return "Key Conclusion: " + text
	}
	if text, exists := a.AbstractSections["results"]; exists {
		return "Key Results: " + text
	}
	if text, exists := a.AbstractSections["text"]; exists {
		return "Summary: " + truncate(text, 300)
	}
	return ""
}

// Format 将文献渲染为可读文本（对外导出）
// 保留PMID引用标记，供下游合成任务引用
func (a *Article) Format() string {
	sections := make([]string, 0, 16)
	sections = append(sections, "PMID: "+a.PMID)
	sections = append(sections, "Title: "+a.Title)
	if a.Journal != "" {
		sections = append(sections, "Journal: "+a.Journal)
	}
	if len(a.Authors) > 0 {
		shown := a.Authors
		if len(shown) > 3 {
			shown = shown[:3]
		}
		sections = append(sections, "Authors: "+strings.Join(shown, "; "))
		if len(a.Authors) > 3 {
			sections = append(sections, fmt.Sprintf("    and %d more", len(a.Authors)-3))
		}
	}
	if a.Date != "" {
		sections = append(sections, "Date: "+a.Date)
	}
	if a.DOI != "" {
		sections = append(sections, "DOI: "+a.DOI)
	}
	if len(a.PublicationTypes) > 0 {
		sections = append(sections, "Publication Type: "+strings.Join(a.PublicationTypes, ", "))
	}
	if len(a.MeshTerms) > 0 {
		sections = append(sections, "MeSH Terms:")
		sections = append(sections, "    "+strings.Join(a.MeshTerms, "; "))
	}

	sections = append(sections, "\nAbstract:")
	for _, label := range a.sectionOrder {
		if label != "text" {
			sections = append(sections, "\n"+capitalize(label)+":")
		}
		sections = append(sections, a.AbstractSections[label])
	}

	if summary := a.keySummary(); summary != "" {
		sections = append(sections, "\nClinical Summary:")
		sections = append(sections, "- "+summary)
	}

	return strings.Join(sections, "\n")
}

// FormatArticles 将多篇文献渲染为分隔文本（对外导出）
func FormatArticles(articles []*Article) string {
	if len(articles) == 0 {
		return ""
	}
	texts := make([]string, 0, len(articles))
	for _, a := range articles {
		texts = append(texts, a.Format())
	}
	separator := "\n\n" + strings.Repeat("=", 50) + "\n\n"
	return strings.Join(texts, separator)
}

// truncate 截断文本到指定长度
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

// capitalize 首字母大写
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
