// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"visaudio/internal/control"
	"visaudio/internal/dsp"
	"visaudio/internal/log"
	"visaudio/internal/metrics"
)

const writeTimeout = time.Second

// featureMessage is the JSON form of a feature vector.
type featureMessage struct {
	Type   string    `json:"type"`
	Volume float64   `json:"volume"`
	Bins   []float64 `json:"bins"`
}

// wsClient serialises writes: gorilla allows one concurrent writer per conn.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// WebSocketTransport broadcasts features and events to websocket clients on
// /ws and forwards the commands they send to the control channel.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	commands  *control.Channel
	metrics   *metrics.Metrics
	mux       *http.ServeMux
	server    *http.Server
	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

// NewWebSocketTransport creates the hub. commands may be nil to ignore
// inbound messages. The HTTP server is not started until Start.
func NewWebSocketTransport(addr string, commands *control.Channel, m *metrics.Metrics) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // visualizers are served from anywhere
			},
		},
		commands:  commands,
		metrics:   m,
		mux:       http.NewServeMux(),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		clients:   make(map[*wsClient]struct{}),
	}
	wst.mux.HandleFunc("/ws", wst.handleWebSocket)

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Name implements Named.
func (wst *WebSocketTransport) Name() string { return "websocket" }

// Handle mounts an extra handler on the same server, e.g. /metrics.
func (wst *WebSocketTransport) Handle(pattern string, h http.Handler) {
	wst.mux.Handle(pattern, h)
}

// Handler returns the HTTP handler serving /ws and anything mounted with Handle.
func (wst *WebSocketTransport) Handler() http.Handler { return wst.mux }

// Start listens on addr and serves in the background. Listen errors are
// returned synchronously.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", wst.addr, err)
	}
	wst.server = &http.Server{Handler: wst.mux, ReadHeaderTimeout: 5 * time.Second}

	wst.wg.Add(1)
	go func() {
		defer wst.wg.Done()
		log.Infof("WebSocketTransport: Starting WebSocket server on %s", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	return nil
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}
	client := &wsClient{conn: conn}

	wst.clientsMu.Lock()
	select {
	case <-wst.done:
		wst.clientsMu.Unlock()
		conn.Close()
		return
	default:
	}
	wst.clients[client] = struct{}{}
	n := len(wst.clients)
	wst.wg.Add(1)
	wst.clientsMu.Unlock()

	wst.metrics.SetWebSocketClients(n)
	log.Infof("WebSocketTransport: Client connected, total: %d", n)

	go wst.readCommands(client)
}

// readCommands runs until the client goes away.
func (wst *WebSocketTransport) readCommands(client *wsClient) {
	defer wst.wg.Done()
	defer wst.removeClient(client)

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		if wst.commands == nil {
			continue
		}

		cmd, err := control.ParseCommand(data)
		if err != nil {
			log.Warnf("WebSocketTransport: Ignoring message: %v", err)
			continue
		}
		if err := wst.commands.TrySend(cmd); err != nil {
			log.Warnf("WebSocketTransport: Dropping %s: %v", cmd, err)
			continue
		}
		log.Debugf("WebSocketTransport: Queued %s", cmd)
	}
}

func (wst *WebSocketTransport) removeClient(client *wsClient) {
	wst.clientsMu.Lock()
	_, present := wst.clients[client]
	delete(wst.clients, client)
	n := len(wst.clients)
	wst.clientsMu.Unlock()

	client.conn.Close()
	if present {
		wst.metrics.SetWebSocketClients(n)
		log.Infof("WebSocketTransport: Client disconnected, total: %d", n)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case msg := <-wst.broadcast:
			wst.clientsMu.Lock()
			clients := make([]*wsClient, 0, len(wst.clients))
			for c := range wst.clients {
				clients = append(clients, c)
			}
			wst.clientsMu.Unlock()

			for _, c := range clients {
				if err := c.write(msg); err != nil {
					log.Debugf("WebSocketTransport: Error sending to client: %v", err)
					// The reader notices the closed conn and deregisters.
					c.conn.Close()
				}
			}
		case <-wst.done:
			return
		}
	}
}

// Send queues data for every connected client. Feature vectors and control
// events get their own message shapes; anything else is sent as plain JSON.
// When the broadcast buffer is full the message is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	msg, err := encodeMessage(data)
	if err != nil {
		return err
	}
	select {
	case wst.broadcast <- msg:
	default:
	}
	return nil
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func encodeMessage(data any) ([]byte, error) {
	switch v := data.(type) {
	case dsp.FeatureVector:
		return json.Marshal(featureMessage{Type: "features", Volume: v.Volume, Bins: v.Bins})
	case control.Event:
		return control.MarshalEvent(v)
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// Close stops the server, disconnects clients and waits for every goroutine
// the transport started.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		log.Debugf("WebSocketTransport: Closing server")

		wst.clientsMu.Lock()
		close(wst.done)
		for c := range wst.clients {
			c.conn.Close()
		}
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
		wst.wg.Wait()
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
