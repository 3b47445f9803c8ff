package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/batch"
)

const (
	streamBuffer    = 64
	streamWriteWait = 10 * time.Second
)

// StreamEvent is the websocket payload for one batch progress event.
type StreamEvent struct {
	batch.Event
	Timestamp time.Time `json:"timestamp"`
}

// wsClient is one subscriber. Only its writer goroutine touches the connection for
// writes; publishers hand events over through send and never wait on the socket.
type wsClient struct {
	conn  *websocket.Conn
	owner string
	send  chan StreamEvent
	done  chan struct{}
	once  sync.Once
}

func newWSClient(conn *websocket.Conn, owner string, buffer int) *wsClient {
	return &wsClient{
		conn:  conn,
		owner: owner,
		send:  make(chan StreamEvent, buffer),
		done:  make(chan struct{}),
	}
}

// enqueue hands e to the writer without blocking. It reports false when the client
// is too far behind and the event was dropped.
func (c *wsClient) enqueue(e StreamEvent) bool {
	select {
	case c.send <- e:
		return true
	default:
		return false
	}
}

func (c *wsClient) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteJSON(event); err != nil {
				logrus.WithError(err).WithField("client", c.owner).Debug("batch websocket write failed")
				// the read loop sees the closed socket and unregisters
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// BatchNotifier fans batch progress out to websocket subscribers. Events reach only
// the subscribers authenticated as the API client that started the batch.
type BatchNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus map[string]StreamEvent
	dropped    int
}

// NewBatchNotifier constructs a notifier instance.
func NewBatchNotifier() *BatchNotifier {
	return &BatchNotifier{
		clients:    make(map[*wsClient]struct{}),
		lastStatus: make(map[string]StreamEvent),
	}
}

// Register subscribes conn to owner's batches, replays owner's last status and starts
// the connection's writer.
func (n *BatchNotifier) Register(conn *websocket.Conn, owner string) *wsClient {
	client := newWSClient(conn, owner, streamBuffer)
	n.attach(client)
	go client.writeLoop()
	return client
}

func (n *BatchNotifier) attach(client *wsClient) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clients[client] = struct{}{}
	if status, ok := n.lastStatus[client.owner]; ok {
		client.enqueue(status)
	}
}

// Unregister removes the client, stops its writer and closes the socket.
func (n *BatchNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	client.stop()
	if client.conn != nil {
		_ = client.conn.Close()
	}
}

// For returns the observer for batches started by owner.
func (n *BatchNotifier) For(owner string) batch.Observer {
	return batch.ObserverFunc(func(e batch.Event) {
		n.publish(owner, e)
	})
}

func (n *BatchNotifier) publish(owner string, e batch.Event) {
	event := StreamEvent{Event: e, Timestamp: time.Now().UTC()}

	n.mu.Lock()
	defer n.mu.Unlock()
	if e.Type == batch.EventStarted || e.Type.Terminal() {
		snapshot := event
		snapshot.Pair = nil
		snapshot.Likelihood = nil
		n.lastStatus[owner] = snapshot
	}
	for client := range n.clients {
		if client.owner != owner {
			continue
		}
		if !client.enqueue(event) {
			n.dropped++
			logrus.WithFields(logrus.Fields{
				"client":   owner,
				"batch_id": e.BatchID,
				"type":     e.Type,
			}).Debug("batch websocket lagging; event dropped")
		}
	}
}

// ClientCount reports how many websocket clients are connected.
func (n *BatchNotifier) ClientCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

// Dropped reports how many events were discarded for lagging clients.
func (n *BatchNotifier) Dropped() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}

// LastStatus returns owner's most recent started or terminal event.
func (n *BatchNotifier) LastStatus(owner string) *StreamEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	status, ok := n.lastStatus[owner]
	if !ok {
		return nil
	}
	return &status
}

func (s *Server) handleBatchStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if len(s.allowedOrigins) == 0 || origin == "" {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	owner := c.GetString(apiClientKey)
	client := s.notifier.Register(conn, owner)
	entry := logrus.WithFields(logrus.Fields{"remote": conn.RemoteAddr().String(), "client": owner})
	entry.Info("batch websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				entry.Info("batch websocket closed")
			} else {
				entry.WithError(err).Warn("batch websocket unexpected close")
			}
			break
		}
	}
}
