package embedding

import "strings"

// CLIP text model special token IDs and context length.
const (
	tokenStartOfText = 49406
	tokenEndOfText   = 49407
	clipVocabSize    = 49152
	clipContextLen   = 77
)

// Tokenizer produces token IDs for a CLIP-style text encoder
// (input_ids and attention_mask, fixed context length).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs.
// It trades exact BPE fidelity for zero external vocabulary files; the same
// text always maps to the same IDs.
type SimpleTokenizer struct{}

// Tokenize splits text into lowercase words and produces padded token IDs.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask []int64) {
	if maxTokens <= 0 {
		maxTokens = clipContextLen
	}
	words := strings.Fields(strings.ToLower(text))
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)

	inputIDs[0] = tokenStartOfText
	attentionMask[0] = 1

	pos := 1
	for _, word := range words {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word) % clipVocabSize)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = tokenEndOfText
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask
}
