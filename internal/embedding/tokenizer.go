package embedding

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Tokenizer produces fixed-length BERT inputs (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64, err error)
}

// WordPieceTokenizer encodes text with the model's own tokenizer.json: its vocabulary, BERT
// normalizer and [CLS] ... [SEP] template.
type WordPieceTokenizer struct {
	tk *tokenizer.Tokenizer
}

// LoadTokenizer reads a Hugging Face tokenizer.json.
func LoadTokenizer(path string) (*WordPieceTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return &WordPieceTokenizer{tk: tk}, nil
}

// Tokenize encodes text with special tokens and pads it to maxTokens. Longer inputs keep their
// first maxTokens-1 tokens followed by the closing [SEP].
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64, err error) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	en, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to tokenize: %w", err)
	}

	// tokenizer.json may carry its own padding; only the attended prefix is real input.
	n := len(en.Ids)
	if len(en.AttentionMask) == n {
		n = 0
		for n < len(en.AttentionMask) && en.AttentionMask[n] == 1 {
			n++
		}
	}

	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	keep := min(n, maxTokens)
	for i := 0; i < keep; i++ {
		inputIDs[i] = int64(en.Ids[i])
		attentionMask[i] = 1
		if i < len(en.TypeIds) {
			tokenTypeIDs[i] = int64(en.TypeIds[i])
		}
	}
	if n > maxTokens {
		inputIDs[maxTokens-1] = int64(en.Ids[n-1])
	}
	return inputIDs, attentionMask, tokenTypeIDs, nil
}
