package stream

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/onepanelio/podlogs/model"
	log "github.com/sirupsen/logrus"
)

// DefaultTailLines is how much history a live stream replays before it
// starts following new output.
const DefaultTailLines int64 = 100

// maxLineSize bounds a single scanned log line.
const maxLineSize = 1024 * 1024

// LogStreamer opens raw follow streams over container logs. *kube.Client
// implements it.
type LogStreamer interface {
	PodLogs(ctx context.Context, ref model.PodRef, tailLines int64) (io.ReadCloser, error)
}

// LiveSource streams container logs from a cluster.
type LiveSource struct {
	streamer  LogStreamer
	tailLines int64
}

// NewLiveSource creates a source that replays DefaultTailLines lines of
// history per stream before following.
func NewLiveSource(streamer LogStreamer) *LiveSource {
	return &LiveSource{
		streamer:  streamer,
		tailLines: DefaultTailLines,
	}
}

// Open starts following the container's log. The returned stream ends when
// the log does or when ctx is cancelled.
func (s *LiveSource) Open(ctx context.Context, ref model.PodRef) (Stream, error) {
	rc, err := s.streamer.PodLogs(ctx, ref, s.tailLines)
	if err != nil {
		return nil, err
	}

	ls := &liveStream{
		lines: make(chan model.LogEntry),
		done:  make(chan struct{}),
	}

	// Reads on rc block until the container writes, so cancellation is
	// delivered by closing rc, which fails the pending read.
	go func() {
		select {
		case <-ctx.Done():
		case <-ls.done:
		}
		rc.Close()
	}()

	go ls.run(ctx, ref, rc)

	return ls, nil
}

type liveStream struct {
	lines chan model.LogEntry
	done  chan struct{}
	err   error
}

func (ls *liveStream) Lines() <-chan model.LogEntry {
	return ls.lines
}

func (ls *liveStream) Err() error {
	return ls.err
}

func (ls *liveStream) run(ctx context.Context, ref model.PodRef, rc io.ReadCloser) {
	defer close(ls.lines)
	defer close(ls.done)

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case ls.lines <- parseLine(ref, scanner.Text()):
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.WithFields(log.Fields{
			"Namespace": ref.Namespace,
			"Pod":       ref.Pod,
			"Container": ref.Container,
			"Error":     err.Error(),
		}).Error("Log stream interrupted.")
		ls.err = err
	}
}

// parseLine splits off the timestamp prefix that the Timestamps log option
// adds to every line. Lines without a parseable prefix pass through whole
// with a zero timestamp.
func parseLine(ref model.PodRef, line string) model.LogEntry {
	entry := model.LogEntry{
		PodRef: ref,
		Line:   line,
	}

	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 {
		return entry
	}

	timestamp, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return entry
	}

	entry.Timestamp = timestamp
	entry.Line = parts[1]

	return entry
}
