package syncclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/sethvargo/go-retry"

	domainerrors "github.com/dukerupert/shopsync/internal/errors"
	"github.com/dukerupert/shopsync/internal/protocol"
)

// Notification reports subscription progress to a WithNotify callback.
// Event is nil for the ready notification.
type Notification struct {
	GroupID string
	Event   protocol.ItemEvent
}

var errClosed = errors.New("subscription closed")

// Subscribe connects to the realtime feed, authenticates, joins the group,
// performs a full pull and then applies pushed events to the store until the
// connection drops or ctx is done. It always returns a non-nil error.
func (c *Client) Subscribe(ctx context.Context, groupID string) error {
	return c.subscribe(ctx, groupID, nil)
}

func (c *Client) subscribe(ctx context.Context, groupID string, ready func()) error {
	wsURL, err := c.socketURL()
	if err != nil {
		return err
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	if err := c.handshake(ctx, conn, protocol.Authenticate{Token: c.token}, protocol.EventAuthenticated); err != nil {
		return err
	}
	// Join before pulling so nothing published in between is missed.
	if err := c.handshake(ctx, conn, protocol.GroupJoin{GroupID: groupID}, protocol.EventGroupJoined); err != nil {
		return err
	}
	if err := c.Refresh(ctx, groupID); err != nil {
		return fmt.Errorf("initial pull: %w", err)
	}
	c.logger.Debug("subscribed", "group_id", groupID, "items", c.store.Len())
	if ready != nil {
		ready()
	}
	c.emit(Notification{GroupID: groupID})

	for {
		msg, err := readMessage(ctx, conn)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case protocol.ItemEvent:
			c.store.Apply(m)
			c.emit(Notification{GroupID: groupID, Event: m})
		case protocol.Error:
			c.logger.Warn("server error event", "code", m.Code, "message", m.Message)
		}
	}
}

// Run keeps a subscription alive, reconnecting with backoff. Each reconnect
// repeats the whole handshake and full pull. The backoff starts over every
// time a subscription becomes ready, so only consecutive failures grow the
// delay. It returns when ctx is done or the server refuses the credentials
// or the group.
func (c *Client) Run(ctx context.Context, groupID string) error {
	b := c.backoff()
	next := retry.BackoffFunc(func() (time.Duration, bool) { return b.Next() })
	return retry.Do(ctx, next, func(ctx context.Context) error {
		err := c.subscribe(ctx, groupID, func() { b = c.backoff() })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = errClosed
		}
		if errors.Is(err, domainerrors.ErrUnauthorized) || errors.Is(err, domainerrors.ErrForbidden) {
			return err
		}
		c.logger.Warn("subscription dropped, reconnecting", "group_id", groupID, "error", err)
		return retry.RetryableError(err)
	})
}

func (c *Client) emit(n Notification) {
	if c.notify != nil {
		c.notify(n)
	}
}

func (c *Client) socketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String(), nil
}

// handshake sends m and waits for the reply named want. Item events that
// arrive first are ignored; the full pull that follows covers them.
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn, m protocol.Message, want string) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send %s: %w", m.EventName(), err)
	}

	for {
		reply, err := readMessage(ctx, conn)
		if err != nil {
			return err
		}
		if e, ok := reply.(protocol.Error); ok {
			return errorFromEvent(e)
		}
		if reply.EventName() == want {
			return nil
		}
	}
}

func readMessage(ctx context.Context, conn *websocket.Conn) (protocol.Message, error) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		msg, err := protocol.Decode(data)
		if errors.Is(err, protocol.ErrUnknownEvent) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return msg, nil
	}
}

func errorFromEvent(e protocol.Error) error {
	switch e.Code {
	case protocol.CodeUnauthorized:
		return domainerrors.Unauthorized(e.Message)
	case protocol.CodeForbidden:
		return domainerrors.Forbidden(e.Message)
	case protocol.CodeBadRequest:
		return domainerrors.Validation(e.Message)
	default:
		return domainerrors.Internal(e.Message)
	}
}
