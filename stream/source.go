package stream

import (
	"context"

	"github.com/onepanelio/podlogs/model"
)

// Stream is a sequence of log entries from one container. Lines is closed
// when the stream ends. Err reports why, and returns nil after a clean end
// or a cancellation; it must not be called before Lines is closed.
type Stream interface {
	Lines() <-chan model.LogEntry
	Err() error
}

// Source opens log streams for containers.
type Source interface {
	Open(ctx context.Context, ref model.PodRef) (Stream, error)
}
