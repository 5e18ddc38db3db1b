package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/onepanelio/podlogs/model"
)

const (
	// SyntheticLineCount is how many placeholder lines a synthetic stream
	// emits before ending.
	SyntheticLineCount = 10

	// DefaultSyntheticInterval is the pause between synthetic lines.
	DefaultSyntheticInterval = time.Second
)

// SyntheticSource emits a short fixed sequence of placeholder lines for
// every opened stream. It stands in for a cluster in local development.
type SyntheticSource struct {
	interval time.Duration
}

// NewSyntheticSource creates a source that emits one line per interval.
// A non-positive interval falls back to DefaultSyntheticInterval.
func NewSyntheticSource(interval time.Duration) *SyntheticSource {
	if interval <= 0 {
		interval = DefaultSyntheticInterval
	}

	return &SyntheticSource{interval: interval}
}

// Open starts a synthetic stream for the container. The stream emits
// SyntheticLineCount numbered lines and then ends cleanly.
func (s *SyntheticSource) Open(ctx context.Context, ref model.PodRef) (Stream, error) {
	ss := &syntheticStream{lines: make(chan model.LogEntry)}

	go ss.run(ctx, ref, s.interval)

	return ss, nil
}

type syntheticStream struct {
	lines chan model.LogEntry
}

func (ss *syntheticStream) Lines() <-chan model.LogEntry {
	return ss.lines
}

func (ss *syntheticStream) Err() error {
	return nil
}

func (ss *syntheticStream) run(ctx context.Context, ref model.PodRef, interval time.Duration) {
	defer close(ss.lines)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < SyntheticLineCount; i++ {
		if i > 0 {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}

		select {
		case ss.lines <- model.LogEntry{
			PodRef: ref,
			Line:   fmt.Sprintf("Fake log line %d from %s/%s", i, ref.Pod, ref.Container),
		}:
		case <-ctx.Done():
			return
		}
	}
}
