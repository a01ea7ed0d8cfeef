package knowledge

import (
	"os"

	"github.com/hyperjump/kotae/pkg/utils"
)

// Summary describes an artifact on disk.
type Summary struct {
	Path       string   `json:"path"`
	SizeBytes  int64    `json:"size_bytes"`
	Dimensions int      `json:"dimensions"`
	Passages   int      `json:"passages"`
	Samples    []string `json:"samples"`
}

// Inspect opens the artifact at path and summarizes it, with up to samples
// truncated passages.
func Inspect(path string, samples int) (*Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	base, err := Open(path)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		Path:       path,
		SizeBytes:  info.Size(),
		Dimensions: base.Dimensions,
		Passages:   base.Len(),
	}
	for i := 0; i < samples && i < base.Len(); i++ {
		s.Samples = append(s.Samples, utils.Truncate(base.Passages[i], 120))
	}
	return s, nil
}
