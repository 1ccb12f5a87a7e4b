package embedding

import "path/filepath"

// Pooling modes for ONNX model output.
const (
	PoolingMean = "mean"
	PoolingNone = "none"
)

// ONNXConfig describes the model file and its input/output layout.
type ONNXConfig struct {
	ModelPath string
	// TokenizerPath is the model's tokenizer.json; empty means tokenizer.json beside the model.
	TokenizerPath string
	LibraryPath   string // onnxruntime shared library; empty uses the platform default
	Dimensions    int
	MaxTokens     int
	OutputName    string
	Pooling       string
}

func (c *ONNXConfig) applyDefaults() {
	if c.TokenizerPath == "" && c.ModelPath != "" {
		c.TokenizerPath = filepath.Join(filepath.Dir(c.ModelPath), "tokenizer.json")
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 384
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 256
	}
	if c.OutputName == "" {
		c.OutputName = "last_hidden_state"
	}
	if c.Pooling == "" {
		c.Pooling = PoolingMean
	}
}

// MeanPool averages token embeddings (row-major [tokens, dimensions]) over tokens whose
// attention mask is set.
func MeanPool(tokens []float32, attentionMask []int64, dimensions int) []float32 {
	out := make([]float32, dimensions)
	var n int
	for t, m := range attentionMask {
		if m == 0 {
			continue
		}
		row := tokens[t*dimensions : (t+1)*dimensions]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= float32(n)
	}
	return out
}
