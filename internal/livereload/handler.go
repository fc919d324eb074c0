package livereload

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/snapfire/snapfire/internal/security"
)

const writeTimeout = 10 * time.Second

// Handler upgrades requests on the reload endpoint to a websocket and
// relays hub signals to the browser until either side goes away. Each
// connection runs on its own goroutines; a failing client tears down only
// itself.
type Handler struct {
	hub      *Hub
	limiter  *security.UpgradeLimiter
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the endpoint handler. limiter may be nil.
func NewHandler(hub *Hub, limiter *security.UpgradeLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		limiter: limiter,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The endpoint only exists in development; the page and the
			// socket are served by the same process.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(r) {
		http.Error(w, "too many reconnect attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	go h.serve(conn)
}

// serve runs one connection's lifecycle: register with the hub, relay
// signals until the transport closes, deregister exactly once.
func (h *Handler) serve(conn *websocket.Conn) {
	sub := h.hub.Subscribe()
	defer sub.Close()
	defer conn.Close()

	h.logger.Debug("websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	// The browser script never sends application data; the read loop exists
	// to notice peer-initiated close and transport errors.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case sig, ok := <-sub.Signals():
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(sig.Payload())); err != nil {
				h.logger.Debug("websocket send failed, dropping client",
					zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
				return
			}

		case <-readerDone:
			h.logger.Debug("websocket client disconnected",
				zap.String("remote", conn.RemoteAddr().String()))
			return
		}
	}
}
