// Package pvd streams scene frames to a debug visualizer over websocket.
//
// A [Client] is owned by a rigid.System and sends one [Frame] per scene
// update. A [Server] accepts any number of clients and hands every decoded
// frame to a callback; the rigidkit pvd command uses it to print frames.
//
// # Thread Safety
//
// Client.Send may be called from several scenes at once. Server handlers
// run on one goroutine per connection.
package pvd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	Path      = "/pvd"
	writeWait = 2 * time.Second
)

var ErrClosed = errors.New("pvd: client closed")

type ActorState struct {
	ID       uint64     `json:"id"`
	Kind     string     `json:"kind"`
	Shape    string     `json:"shape"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Sleeping bool       `json:"sleeping,omitempty"`
}

// Frame is the state of one scene after one step.
type Frame struct {
	Scene  uint64       `json:"scene"`
	Frame  uint64       `json:"frame"`
	Flags  uint8        `json:"flags"`
	Actors []ActorState `json:"actors"`
}

// Client is a connection to a visualizer.
type Client struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Dial connects to a visualizer listening on addr (host:port).
func Dial(ctx context.Context, addr string) (*Client, error) {
	url := "ws://" + addr + Path
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("pvd: dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and drops the connection. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return c.conn.Close()
}

// Server receives frames from clients.
type Server struct {
	upgrader websocket.Upgrader
	handle   func(Frame)
	logger   *log.Logger
}

func NewServer(handle func(Frame), logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handle: handle,
		logger: logger,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("pvd: upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	s.logger.Printf("pvd: client %s connected", r.RemoteAddr)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("pvd: client %s: %v", r.RemoteAddr, err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.logger.Printf("pvd: bad frame from %s: %v", r.RemoteAddr, err)
			continue
		}
		s.handle(f)
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, s)
	srv := &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("pvd: listen %s: %w", addr, err)
	}
	s.logger.Printf("pvd: listening on %s", ln.Addr())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
