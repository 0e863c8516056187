// Package signal is the WebSocket adapter: it upgrades connections,
// decodes inbound events and hands them to the presence engine, the
// signaling relay and the question flow.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lanbix/live-interview/internal/app"
	"github.com/lanbix/live-interview/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	engine    *app.Engine
	relay     *app.Relay
	questions *app.Questions
	reg       *core.Registry
	bc        *app.Broadcaster
	validate  *validator.Validate

	readLimit  int64
	pingPeriod time.Duration
}

func NewController(engine *app.Engine, relay *app.Relay, questions *app.Questions, reg *core.Registry, bc *app.Broadcaster, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{
		engine:     engine,
		relay:      relay,
		questions:  questions,
		reg:        reg,
		bc:         bc,
		validate:   validator.New(),
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
	}
}

// wsConn is one live client connection. Writes go through a buffered send
// channel; a full channel means the client is too slow and the frame is
// dropped rather than queued.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it dies.
// Every connection gets a fresh opaque ID; the user identity is bound by
// the first join event.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	connID := core.ConnID(uuid.NewString())
	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctl.reg.Add(connID, conn)
	log.Info().Str("module", "signal").Str("conn", string(connID)).
		Str("client_token", c.GetString("client_token")).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, connID, conn)
	}()
}
