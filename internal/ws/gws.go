package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lxzan/gws"
)

// Config holds transport-level options for the gws-backed socket.
type Config struct {
	// PingInterval is the duration between keepalive pings from the server.
	PingInterval time.Duration
	// PongWait is the maximum time to wait past a ping before considering
	// the connection dead.
	PongWait time.Duration
}

// DefaultConfig returns transport defaults suitable for broker feeds.
func DefaultConfig() Config {
	return Config{
		PingInterval: 10 * time.Second,
		PongWait:     20 * time.Second,
	}
}

// Dial opens a websocket connection with default transport settings.
func Dial(ctx context.Context, url string, h Handler) (Socket, error) {
	return NewDialer(DefaultConfig())(ctx, url, h)
}

// NewDialer returns a Dialer backed by gws with the given transport config.
func NewDialer(config Config) Dialer {
	if config.PingInterval == 0 {
		config.PingInterval = 10 * time.Second
	}
	if config.PongWait == 0 {
		config.PongWait = 20 * time.Second
	}

	return func(ctx context.Context, url string, h Handler) (Socket, error) {
		sock := &gwsSocket{config: config, handler: h}

		conn, _, err := gws.NewClient(&gwsEventHandler{sock: sock}, &gws.ClientOption{
			Addr: url,
		})
		if err != nil {
			return nil, fmt.Errorf("dial websocket: %w", err)
		}
		sock.conn = conn

		go conn.ReadLoop()

		return sock, nil
	}
}

type gwsSocket struct {
	config  Config
	handler Handler
	conn    *gws.Conn

	closeOnce sync.Once
}

func (s *gwsSocket) Send(data []byte) error {
	return s.conn.WriteMessage(gws.OpcodeText, data)
}

func (s *gwsSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteClose(1000, nil)
		err = s.conn.NetConn().Close()
	})
	return err
}

type gwsEventHandler struct {
	sock *gwsSocket
}

func (h *gwsEventHandler) OnOpen(socket *gws.Conn) {
	_ = socket.SetDeadline(time.Now().Add(h.sock.config.PingInterval + h.sock.config.PongWait))
	h.sock.handler.OnOpen(h.sock)
}

func (h *gwsEventHandler) OnClose(socket *gws.Conn, err error) {
	h.sock.handler.OnClose(h.sock, err)
}

func (h *gwsEventHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.sock.config.PingInterval + h.sock.config.PongWait))
	_ = socket.WritePong(nil)
}

func (h *gwsEventHandler) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.sock.config.PingInterval + h.sock.config.PongWait))
}

func (h *gwsEventHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	data := message.Bytes()
	if len(data) == 0 {
		return
	}

	h.sock.handler.OnMessage(h.sock, data)
}
