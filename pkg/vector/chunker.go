// Package vector 文本分块、向量化与相似度检索
package vector

import (
	"strings"
	"unicode"
)

const (
	DefaultMaxSentences = 3
	DefaultOverlap      = 1
)

// SentenceChunk 按句子切分并生成带重叠的文本块（对外导出）
func SentenceChunk(text string, maxSentences, overlap int) []string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	step := maxSentences - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for i := 0; i < len(sentences); i += step {
		end := i + maxSentences
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
	}
	return chunks
}

// splitSentences 在句末标点后跟空白处切句（内部方法）
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r == '.' || r == '?' || r == '!' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
