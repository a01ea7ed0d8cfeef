//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/kotae/pkg/utils"
)

// ONNXEmbedder runs a sentence-transformer model exported to ONNX. It
// requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Tensors are bound to the session once; Embed rewrites their data.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads the model at opts.ModelPath. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	opts = opts.withDefaults()
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	tokenizer := &HashTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", opts.MaxTokens)
	shape := ort.NewShape(1, int64(opts.MaxTokens))

	e := &ONNXEmbedder{
		dimensions: opts.Dimensions,
		maxTokens:  opts.MaxTokens,
		tokenizer:  tokenizer,
	}
	var err error
	if e.inputIDsTensor, err = ort.NewTensor(shape, inputIDs); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(shape, attentionMask); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDsTensor, err = ort.NewTensor(shape, tokenTypeIDs); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if e.outputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.Dimensions))); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", opts.ModelPath, err)
	}
	return e, nil
}

// Embed returns the L2-normalized sentence embedding for text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.outputTensor.GetData())
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text; the session is bound to batch size 1.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
	}
	e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor, e.outputTensor = nil, nil, nil, nil
	return err
}
