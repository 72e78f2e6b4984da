/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package documents

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

// BM25 parameters.
const (
	paramK1 = 1.2
	paramB  = 0.75
)

type indexedDocument struct {
	doc      chat.Document
	termFreq map[string]int
	length   int
}

// MemoryIndex ranks documents with BM25. Statistics are rebuilt on every Add.
type MemoryIndex struct {
	mu        sync.RWMutex
	docs      []indexedDocument
	avgLength float64
	idf       map[string]float64
}

var _ Searcher = (*MemoryIndex)(nil)

func NewMemoryIndex(docs ...chat.Document) *MemoryIndex {
	idx := &MemoryIndex{idf: make(map[string]float64)}
	idx.Add(docs...)
	return idx
}

func (idx *MemoryIndex) Add(docs ...chat.Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, doc := range docs {
		tokens := tokenize(doc.Content)
		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		idx.docs = append(idx.docs, indexedDocument{doc: doc, termFreq: tf, length: len(tokens)})
	}
	idx.rebuild()
}

func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

func (idx *MemoryIndex) rebuild() {
	docFreq := make(map[string]int)
	total := 0
	for _, d := range idx.docs {
		total += d.length
		for term := range d.termFreq {
			docFreq[term]++
		}
	}
	idx.avgLength = 0
	if len(idx.docs) > 0 {
		idx.avgLength = float64(total) / float64(len(idx.docs))
	}
	n := float64(len(idx.docs))
	idx.idf = make(map[string]float64, len(docFreq))
	// log(1 + ...) keeps the weight positive even for terms present in every document.
	for term, freq := range docFreq {
		idx.idf[term] = math.Log(1 + (n-float64(freq)+0.5)/(float64(freq)+0.5))
	}
}

func (idx *MemoryIndex) Search(_ context.Context, query string, opts SearchOptions) ([]chat.Document, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []chat.Document
	for _, d := range idx.docs {
		if !matches(d.doc, opts.Filter) {
			continue
		}
		score := idx.score(d, queryTokens)
		if score <= 0 || score < opts.SimilarityThreshold {
			continue
		}
		doc := d.doc
		doc.Score = score
		hits = append(hits, doc)
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})
	if k := opts.topK(); len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (idx *MemoryIndex) score(d indexedDocument, queryTokens []string) float64 {
	var score float64
	for _, token := range queryTokens {
		idf, ok := idx.idf[token]
		if !ok {
			continue
		}
		freq := float64(d.termFreq[token])
		if freq == 0 {
			continue
		}
		numerator := freq * (paramK1 + 1)
		denominator := freq + paramK1*(1-paramB+paramB*float64(d.length)/idx.avgLength)
		score += idf * numerator / denominator
	}
	return score
}

// tokenize lower-cases text and splits it on every rune that is not a letter or digit.
// Words shorter than two runes are dropped. Han, kana and hangul are written without
// spaces, so runs of them are indexed as overlapping two-rune grams.
func tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		tokens = appendWordTokens(tokens, []rune(word))
	}
	return tokens
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func appendWordTokens(tokens []string, word []rune) []string {
	for start := 0; start < len(word); {
		cjk := isCJK(word[start])
		end := start + 1
		for end < len(word) && isCJK(word[end]) == cjk {
			end++
		}
		run := word[start:end]
		switch {
		case cjk && len(run) == 1:
			tokens = append(tokens, string(run))
		case cjk:
			for i := 0; i+1 < len(run); i++ {
				tokens = append(tokens, string(run[i:i+2]))
			}
		case len(run) >= 2:
			tokens = append(tokens, string(run))
		}
		start = end
	}
	return tokens
}
