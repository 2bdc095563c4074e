package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"pokernight/internal/middleware"
	"pokernight/internal/roster"
	"pokernight/internal/service/table"
	"pokernight/pkg/logger"
	"pokernight/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	hub    *Hub
	tables *table.Service
}

func NewHandler(hub *Hub, tables *table.Service) *Handler {
	return &Handler{hub: hub, tables: tables}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HandleTableFeed streams the caller's view of one table: the current state on
// connect, then every change made by the same session.
func (h *Handler) HandleTableFeed(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("table_number"))
	if err != nil || roster.ValidateTable(number) != nil {
		response.Fail(c, http.StatusNotFound, "table not found")
		return
	}
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "missing session")
		return
	}

	ctx := c.Request.Context()
	current, err := h.tables.Refresh(ctx, sess, number)
	if err != nil {
		logger.Log.Error("failed to load table for feed", zap.Error(err))
		response.Fail(c, http.StatusInternalServerError, "failed to load table")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection",
		zap.String("sessionID", sess.ID),
		zap.Int("table", number),
	)

	cl := newClient(conn, h, sess, number)
	cl.direct <- OutgoingMessage{Type: "state", Seq: h.hub.nextSeq(), Data: current}
	cl.run(ctx)
}

type client struct {
	conn      *websocket.Conn
	handler   *Handler
	sess      *roster.Session
	table     int
	subID     uint64
	outbound  <-chan OutgoingMessage
	direct    chan OutgoingMessage
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, h *Handler, sess *roster.Session, number int) *client {
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	subID, outbound := h.hub.Subscribe(sess.ID, number)
	return &client{
		conn:      conn,
		handler:   h,
		sess:      sess,
		table:     number,
		subID:     subID,
		outbound:  outbound,
		direct:    make(chan OutgoingMessage, 4),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

// readPump only understands {"type":"refresh"}; anything else gets an error frame.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		close(c.done)
		c.handler.hub.Unsubscribe(c.sess.ID, c.table, c.subID)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.String("sessionID", c.sess.ID), zap.Int("table", c.table))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.send(OutgoingMessage{Type: "error", Data: gin.H{"message": "invalid payload"}})
			continue
		}

		switch incoming.Type {
		case "":
			continue
		case "refresh":
			current, err := c.handler.tables.Refresh(ctx, c.sess, c.table)
			if err != nil {
				c.send(OutgoingMessage{Type: "error", Data: gin.H{"message": "refresh failed"}})
				continue
			}
			c.send(OutgoingMessage{Type: "state", Seq: c.handler.hub.nextSeq(), Data: current})
		default:
			c.send(OutgoingMessage{Type: "error", Data: gin.H{"message": "unknown message type"}})
		}
	}
}

func (c *client) send(msg OutgoingMessage) {
	select {
	case c.direct <- msg:
	default:
		logger.Log.Warn("ws direct channel full", zap.String("sessionID", c.sess.ID), zap.Int("table", c.table))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.String("sessionID", c.sess.ID), zap.Int("table", c.table))
				return
			}
		case msg := <-c.direct:
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.String("sessionID", c.sess.ID), zap.Int("table", c.table))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
