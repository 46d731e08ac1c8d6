package logger_test

import (
	"log/slog"

	"github.com/soundprediction/docgraph/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("Walking corpus", "root", "./docs")
	log.Info("Indexing batch", "batch", 1, "size", 50) // green in a terminal
	log.Warn("Ambiguous link", "raw", "offerings")     // yellow
	log.Error("Embedding request failed")              // red
}
