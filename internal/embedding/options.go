package embedding

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
	// OutputName is the pooled output of the exported graph.
	OutputName string
}

func (o ONNXOptions) withDefaults() ONNXOptions {
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.MaxTokens <= 2 {
		o.MaxTokens = 256
	}
	if o.OutputName == "" {
		o.OutputName = "sentence_embedding"
	}
	return o
}
