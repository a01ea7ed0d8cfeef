package embedding

import (
	"strings"
	"unicode"
)

// Special token ids of BERT-style vocabularies.
const (
	tokenCLS = 101
	tokenSEP = 102
	vocabCap = 30000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// HashTokenizer maps lower-cased words to hashed ids. It does not reproduce a
// real wordpiece vocabulary; swap it out when exact model parity matters.
type HashTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *HashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1

	pos := 1
	for _, word := range SplitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		// Reserve ids below 1000 for special tokens.
		inputIDs[pos] = int64(1000 + HashString(strings.ToLower(word))%(vocabCap-1000))
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = tokenSEP
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords splits text on whitespace and punctuation. Apostrophes stay
// inside words ("aujourd'hui").
func SplitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		if r == '\'' || r == '’' {
			return false
		}
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	var h uint64
	for _, c := range s {
		h = 31*h + uint64(c)
	}
	return int(h >> 1)
}
