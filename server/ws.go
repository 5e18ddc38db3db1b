package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/onepanelio/podlogs/model"
	"github.com/onepanelio/podlogs/util"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
)

const (
	// writeWait is how long a single websocket write may take.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the client.
	pongWait = 60 * time.Second

	// pingPeriod is how often to ping. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxCommandSize bounds inbound command frames.
	maxCommandSize = 4096

	// sendQueueSize is the per-connection outbound queue. Deliveries that
	// would overflow it are dropped rather than block the broadcaster.
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// command is an inbound viewer frame.
type command struct {
	Type      string `json:"type"`
	Namespace string `json:"namespace"`
	Pod       string `json:"pod"`
	Container string `json:"container"`
	Room      string `json:"room"`
}

// wsConn adapts one websocket to the hub. A single writer goroutine owns
// the socket's write side; Send only enqueues.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:   uuid.New().String(),
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (c *wsConn) ID() string {
	return c.id
}

// Send enqueues the payload for the writer goroutine. It reports false,
// dropping the payload, when the queue is full or the connection is gone.
func (c *wsConn) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(log.Fields{
			"Error": err.Error(),
		}).Error("Websocket upgrade failed.")
		return
	}

	conn := newWSConn(ws)
	s.metrics.ConnectedClients.Inc()

	log.WithFields(log.Fields{
		"ConnID": conn.id,
	}).Info("Viewer connected.")

	go s.writePump(conn)
	go s.readPump(conn)
}

func (s *Server) readPump(conn *wsConn) {
	defer func() {
		// A panicked command handler takes down this connection only.
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"ConnID": conn.id,
				"Error":  fmt.Sprintf("%v", r),
			}).Error("Websocket read pump panicked.")
		}

		conn.close()
		conn.ws.Close()
		s.manager.Disconnect(conn)
		s.metrics.ConnectedClients.Dec()

		log.WithFields(log.Fields{
			"ConnID": conn.id,
		}).Info("Viewer disconnected.")
	}()

	conn.ws.SetReadLimit(maxCommandSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithFields(log.Fields{
					"ConnID": conn.id,
					"Error":  err.Error(),
				}).Error("Websocket read failed.")
			}
			return
		}

		s.dispatch(conn, raw)
	}
}

func (s *Server) dispatch(conn *wsConn, raw []byte) {
	var cmd command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.replyError(conn, "", util.NewUserError(codes.InvalidArgument, "Malformed command."))
		return
	}

	switch cmd.Type {
	case model.CommandTypeStart:
		err := s.manager.Start(conn, model.PodRef{
			Namespace: cmd.Namespace,
			Pod:       cmd.Pod,
			Container: cmd.Container,
		}, cmd.Room)
		if err != nil {
			s.replyError(conn, cmd.Room, err)
		}
	case model.CommandTypeStop:
		if err := s.manager.Stop(conn, cmd.Room); err != nil {
			s.replyError(conn, cmd.Room, err)
		}
	default:
		s.replyError(conn, cmd.Room, util.NewUserError(codes.InvalidArgument, fmt.Sprintf("Unknown command type %q.", cmd.Type)))
	}
}

// replyError sends an error event to the issuing connection only.
func (s *Server) replyError(conn *wsConn, room string, err error) {
	payload, marshalErr := json.Marshal(model.ErrorMessage{
		Type:    model.MessageTypeError,
		Room:    room,
		Message: util.ErrorMessage(err),
	})
	if marshalErr != nil {
		return
	}

	conn.Send(payload)
}

func (s *Server) writePump(conn *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()

	for {
		select {
		case payload := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.close()
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.close()
				return
			}
		case <-conn.done:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			conn.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
