package main

import (
	"log/slog"
	"time"
)

// consoleSink reports run events through the default structured logger. It is
// the CLI's presentation collaborator; progress updates arrive from parallel
// chunk goroutines in no particular order.
type consoleSink struct{}

func (*consoleSink) ChunkProgress(index, percent int) {
	slog.Debug("chunk progress", "chunk", index, "percent", percent)
}

func (*consoleSink) ChunkCompleted(index int) {
	slog.Info("chunk completed", "chunk", index)
}

func (*consoleSink) ChunkFailed(index int, err error) {
	slog.Error("chunk failed", "chunk", index, "err", err)
}

func (*consoleSink) RunCompleted(elapsed time.Duration, _ string) {
	slog.Info("all chunks processed, transcript ready", "elapsed", elapsed)
}
