package utils

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug mode returns development logger", func(t *testing.T) {
		logger, err := NewLogger(true)
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Error("development logger should enable debug level")
		}
		_ = logger.Sync()
	})

	t.Run("production mode returns info logger", func(t *testing.T) {
		logger, err := NewLogger(false)
		if err != nil {
			t.Fatalf("NewLogger(false) error: %v", err)
		}
		if logger.Core().Enabled(zap.DebugLevel) {
			t.Error("production logger should not enable debug level")
		}
		_ = logger.Sync()
	})
}

func TestQuestionField(t *testing.T) {
	f := QuestionField(strings.Repeat("é", 100))
	if f.Key != "question" {
		t.Errorf("key: got %s", f.Key)
	}
	if got := len([]rune(f.String)); got != 83 {
		t.Errorf("truncated length: got %d runes", got)
	}
}
