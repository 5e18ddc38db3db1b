package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onepanelio/podlogs/hub"
	"github.com/onepanelio/podlogs/metrics"
	"github.com/onepanelio/podlogs/model"
	"github.com/onepanelio/podlogs/stream"
	"github.com/onepanelio/podlogs/util"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
)

// session is the runtime binding of one container's log stream to a room.
// It belongs to the connection that started it and runs until the stream
// ends or the session is cancelled.
type session struct {
	id      string
	ref     model.PodRef
	room    string
	ownerID string
	cancel  context.CancelFunc
}

// Manager starts, tracks and stops log streaming sessions. Each session
// pumps one container's log into one room; a room may be fed by any number
// of sessions.
type Manager struct {
	source  stream.Source
	hub     *hub.Hub
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a manager that opens streams from source and broadcasts their
// lines through h.
func New(source stream.Source, h *hub.Hub, m *metrics.Metrics) *Manager {
	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Manager{
		source:     source,
		hub:        h,
		metrics:    m,
		sessions:   make(map[string]*session),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Start joins conn to the room and begins streaming the container's log
// into it. The join is effective when Start returns; the stream itself is
// opened asynchronously. Every call creates a new session, including
// repeated calls for the same room.
func (m *Manager) Start(conn hub.Conn, ref model.PodRef, room string) error {
	if err := validate(ref, room); err != nil {
		return err
	}

	m.hub.Join(room, conn)

	ctx, cancel := context.WithCancel(m.baseCtx)
	sess := &session{
		id:      uuid.New().String(),
		ref:     ref,
		room:    room,
		ownerID: conn.ID(),
		cancel:  cancel,
	}

	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	m.metrics.SessionsStarted.Inc()
	m.metrics.ActiveSessions.Inc()

	log.WithFields(log.Fields{
		"SessionID": sess.id,
		"Namespace": ref.Namespace,
		"Pod":       ref.Pod,
		"Container": ref.Container,
		"Room":      room,
	}).Info("Log session started.")

	m.wg.Add(1)
	go m.run(ctx, sess)

	return nil
}

// Stop removes conn from the room and cancels the sessions in that room
// that conn started. Sessions started by other connections keep streaming,
// and conn's membership in other rooms is untouched.
func (m *Manager) Stop(conn hub.Conn, room string) error {
	if room == "" {
		return util.NewUserError(codes.InvalidArgument, "Room is required.")
	}

	m.hub.Leave(room, conn)
	m.cancelOwned(conn.ID(), func(sess *session) bool {
		return sess.room == room
	})

	return nil
}

// Disconnect removes conn from every room and cancels every session it
// started.
func (m *Manager) Disconnect(conn hub.Conn) {
	m.hub.LeaveAll(conn)
	m.cancelOwned(conn.ID(), func(*session) bool {
		return true
	})
}

// Shutdown cancels every session and waits for the pumps to exit, bounded
// by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.baseCancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveSessions returns how many sessions are currently running.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

func (m *Manager) run(ctx context.Context, sess *session) {
	defer m.wg.Done()
	defer m.metrics.ActiveSessions.Dec()
	defer m.removeSession(sess.id)
	defer sess.cancel()

	st, err := m.source.Open(ctx, sess.ref)
	if err != nil {
		m.failSession(ctx, sess, err)
		return
	}

	for entry := range st.Lines() {
		payload, marshalErr := json.Marshal(logMessage(sess.room, entry))
		if marshalErr != nil {
			log.WithFields(log.Fields{
				"SessionID": sess.id,
				"Error":     marshalErr.Error(),
			}).Error("Marshal log message failed.")
			continue
		}

		_, dropped := m.hub.Broadcast(sess.room, payload)
		m.metrics.LinesBroadcast.Inc()
		if dropped > 0 {
			m.metrics.DroppedDeliveries.Add(float64(dropped))
		}
	}

	if streamErr := st.Err(); streamErr != nil {
		m.failSession(ctx, sess, streamErr)
	}
}

// failSession reports a source failure to the session's room. A session
// that was cancelled by stop or shutdown ends silently.
func (m *Manager) failSession(ctx context.Context, sess *session, err error) {
	if ctx.Err() != nil {
		return
	}

	log.WithFields(log.Fields{
		"SessionID": sess.id,
		"Namespace": sess.ref.Namespace,
		"Pod":       sess.ref.Pod,
		"Container": sess.ref.Container,
		"Room":      sess.room,
		"Error":     err.Error(),
	}).Error("Log source unavailable.")

	m.metrics.SessionFailures.Inc()

	userErr := util.NewUserError(codes.Unavailable,
		fmt.Sprintf("Log source unavailable for %s/%s.", sess.ref.Pod, sess.ref.Container))

	payload, marshalErr := json.Marshal(model.ErrorMessage{
		Type:    model.MessageTypeError,
		Room:    sess.room,
		Message: util.ErrorMessage(userErr),
	})
	if marshalErr != nil {
		return
	}

	m.hub.Broadcast(sess.room, payload)
}

func (m *Manager) removeSession(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
}

func (m *Manager) cancelOwned(ownerID string, match func(*session) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sess := range m.sessions {
		if sess.ownerID == ownerID && match(sess) {
			sess.cancel()
		}
	}
}

func logMessage(room string, entry model.LogEntry) model.LogMessage {
	msg := model.LogMessage{
		Type:      model.MessageTypeLog,
		Pod:       entry.Pod,
		Container: entry.Container,
		Line:      entry.Line,
		Room:      room,
	}

	if !entry.Timestamp.IsZero() {
		msg.Timestamp = entry.Timestamp.Format(time.RFC3339Nano)
	}

	return msg
}

func validate(ref model.PodRef, room string) error {
	switch {
	case room == "":
		return util.NewUserError(codes.InvalidArgument, "Room is required.")
	case ref.Namespace == "":
		return util.NewUserError(codes.InvalidArgument, "Namespace is required.")
	case ref.Pod == "":
		return util.NewUserError(codes.InvalidArgument, "Pod is required.")
	case ref.Container == "":
		return util.NewUserError(codes.InvalidArgument, "Container is required.")
	}

	return nil
}
