package websocket

import (
	"context"
	"log/slog"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/shopsync/internal/auth"
	"github.com/dukerupert/shopsync/internal/protocol"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	readLimit      = 16 << 10
)

// TokenVerifier validates the bearer credential sent in the handshake.
type TokenVerifier interface {
	Verify(token string) (auth.AuthContext, error)
}

// AccessChecker reports whether a user may subscribe to a group.
type AccessChecker interface {
	CanAccess(ctx context.Context, userID, groupID string) (bool, error)
}

// Client is one live connection and its session state. userID is empty until
// the session authenticates and is only touched by the read loop; rooms is
// guarded by the hub's lock.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	send     chan []byte
	verifier TokenVerifier
	guard    AccessChecker
	logger   *slog.Logger

	userID string
	rooms  map[string]struct{}
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, verifier TokenVerifier, guard AccessChecker, logger *slog.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		verifier: verifier,
		guard:    guard,
		logger:   logger,
		rooms:    make(map[string]struct{}),
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters, which drops
// every room membership the session held.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(readLimit)

	go c.writePump(ctx, cancel)
	c.readPump(ctx)
}

// readPump decodes incoming frames and dispatches them one at a time. It
// returns on read error (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handle(ctx, data)
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections. When it exits
// it cancels the session so a read loop stuck in reply is released.
func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel; connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// handle runs one client message to completion. Failures are reported as
// error events on the same connection; the connection is never closed here.
func (c *Client) handle(ctx context.Context, frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		c.reply(ctx, protocol.Error{Code: protocol.CodeBadRequest, Message: "malformed message"})
		return
	}

	switch m := msg.(type) {
	case protocol.Authenticate:
		c.authenticate(ctx, m)
	case protocol.GroupJoin:
		c.join(ctx, m)
	case protocol.GroupLeave:
		if m.GroupID != "" {
			c.hub.Leave(c, m.GroupID)
		}
	default:
		c.reply(ctx, protocol.Error{Code: protocol.CodeBadRequest, Message: "unsupported event " + msg.EventName()})
	}
}

func (c *Client) authenticate(ctx context.Context, m protocol.Authenticate) {
	if m.Token == "" {
		c.reply(ctx, protocol.Error{Code: protocol.CodeUnauthorized, Message: "token required"})
		return
	}
	ac, err := c.verifier.Verify(m.Token)
	if err != nil {
		c.logger.Debug("handshake rejected", "error", err)
		c.reply(ctx, protocol.Error{Code: protocol.CodeUnauthorized, Message: "invalid token"})
		return
	}
	c.userID = ac.UserID
	c.reply(ctx, protocol.Authenticated{})
}

func (c *Client) join(ctx context.Context, m protocol.GroupJoin) {
	if c.userID == "" {
		c.reply(ctx, protocol.Error{Code: protocol.CodeUnauthorized, Message: "authenticate first"})
		return
	}
	if m.GroupID == "" {
		c.reply(ctx, protocol.Error{Code: protocol.CodeBadRequest, Message: "groupId required"})
		return
	}

	ok, err := c.guard.CanAccess(ctx, c.userID, m.GroupID)
	if err != nil {
		c.logger.Error("join access check", "group_id", m.GroupID, "user_id", c.userID, "error", err)
		c.reply(ctx, protocol.Error{Code: protocol.CodeError, Message: "failed to join group"})
		return
	}
	if !ok {
		c.reply(ctx, protocol.Error{Code: protocol.CodeForbidden, Message: "not a group member"})
		return
	}

	if !c.hub.Join(c, m.GroupID) {
		return
	}
	c.logger.Debug("joined room", "room", RoomName(m.GroupID), "user_id", c.userID)
	c.reply(ctx, protocol.GroupJoined{GroupID: m.GroupID})
}

// reply queues a direct response for this session. Unlike fan-out it waits
// for buffer space, giving up only when the connection is going away.
func (c *Client) reply(ctx context.Context, m protocol.Message) {
	data, err := protocol.Encode(m)
	if err != nil {
		c.logger.Error("encode reply", "event", m.EventName(), "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-ctx.Done():
	}
}
