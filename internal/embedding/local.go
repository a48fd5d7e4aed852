package embedding

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Local is a TF-IDF vectorizer usable without any model backend. It builds
// its vocabulary from the corpus passed to Prepare, so vectors are
// deterministic for a given corpus and text. Japanese text carries no word
// boundaries, so CJK runs are tokenized as character bigrams.
type Local struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
	prepared   bool
	wordRe     *regexp.Regexp
}

// NewLocal creates an unprepared local embedder.
func NewLocal() *Local {
	return &Local{
		vocabulary: make(map[string]int),
		wordRe:     regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
	}
}

// Name returns the embedder identifier.
func (e *Local) Name() string { return "local" }

// Prepare builds the vocabulary and IDF table from the corpus. It must run
// before Embed, and must be re-run with the same corpus to reproduce the
// same vector space in a new process.
func (e *Local) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for local embedder")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	sort.Strings(terms)

	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.dimension = len(terms)
	e.prepared = true
	return nil
}

// Dimension returns the vocabulary size, zero before Prepare.
func (e *Local) Dimension() int { return e.dimension }

// Embed returns the L2-normalized TF-IDF vector for the text.
func (e *Local) Embed(_ context.Context, text string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("local embedder not prepared")
	}
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatch embeds sequentially; local vectorization is cheap enough that
// worker fan-out buys nothing.
func (e *Local) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *Local) tokenize(text string) []string {
	var tokens []string
	for _, run := range e.wordRe.FindAllString(strings.ToLower(text), -1) {
		if isCJK(run) {
			tokens = append(tokens, bigrams(run)...)
		} else {
			tokens = append(tokens, run)
		}
	}
	return tokens
}

func isCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return []string{s}
	}
	out := make([]string, 0, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		out = append(out, string(runes[i:i+2]))
	}
	return out
}
