// Package protocol defines the realtime wire contract: every frame is a JSON
// envelope {"event": name, "data": payload}, decoded once at the connection
// boundary into one of the concrete message types below.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/shopsync/internal/model"
)

// Event names.
const (
	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventGroupJoin     = "group:join"
	EventGroupJoined   = "group:joined"
	EventGroupLeave    = "group:leave"
	EventError         = "error"
	EventItemAdded     = "item:added"
	EventItemEdited    = "item:edited"
	EventItemChecked   = "item:checked"
	EventItemDeleted   = "item:deleted"
)

// ErrorCode is carried by server error events.
type ErrorCode string

const (
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeBadRequest   ErrorCode = "BAD_REQUEST"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeError        ErrorCode = "ERROR"
)

// ErrUnknownEvent is returned by Decode for an unrecognised discriminant.
var ErrUnknownEvent = errors.New("unknown event")

// Envelope is the frame layout on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is any frame payload.
type Message interface {
	EventName() string
}

// ItemEvent is the closed set of fan-out notifications about item changes.
type ItemEvent interface {
	Message
	itemEvent()
}

// Client to server.

type Authenticate struct {
	Token string `json:"token"`
}

type GroupJoin struct {
	GroupID string `json:"groupId"`
}

type GroupLeave struct {
	GroupID string `json:"groupId"`
}

// Server to client.

type Authenticated struct{}

type GroupJoined struct {
	GroupID string `json:"groupId"`
}

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type ItemAdded struct {
	Item model.ItemView `json:"item"`
}

type ItemEdited struct {
	Item model.ItemView `json:"item"`
}

// ItemChecked is the lightweight toggle notification.
type ItemChecked struct {
	ItemID  string `json:"itemId"`
	Checked bool   `json:"checked"`
}

type ItemDeleted struct {
	ItemID string `json:"itemId"`
}

func (Authenticate) EventName() string  { return EventAuthenticate }
func (Authenticated) EventName() string { return EventAuthenticated }
func (GroupJoin) EventName() string     { return EventGroupJoin }
func (GroupJoined) EventName() string   { return EventGroupJoined }
func (GroupLeave) EventName() string    { return EventGroupLeave }
func (Error) EventName() string         { return EventError }
func (ItemAdded) EventName() string     { return EventItemAdded }
func (ItemEdited) EventName() string    { return EventItemEdited }
func (ItemChecked) EventName() string   { return EventItemChecked }
func (ItemDeleted) EventName() string   { return EventItemDeleted }

func (ItemAdded) itemEvent()   {}
func (ItemEdited) itemEvent()  {}
func (ItemChecked) itemEvent() {}
func (ItemDeleted) itemEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Encode wraps m in an envelope and marshals it.
func Encode(m Message) ([]byte, error) {
	var data json.RawMessage
	if _, empty := m.(Authenticated); !empty {
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", m.EventName(), err)
		}
		data = payload
	}
	return json.Marshal(Envelope{Event: m.EventName(), Data: data})
}

// Decode parses a frame into its concrete message type.
func Decode(frame []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var m Message
	switch env.Event {
	case EventAuthenticate:
		m = &Authenticate{}
	case EventAuthenticated:
		return Authenticated{}, nil
	case EventGroupJoin:
		m = &GroupJoin{}
	case EventGroupJoined:
		m = &GroupJoined{}
	case EventGroupLeave:
		m = &GroupLeave{}
	case EventError:
		m = &Error{}
	case EventItemAdded:
		m = &ItemAdded{}
	case EventItemEdited:
		m = &ItemEdited{}
	case EventItemChecked:
		m = &ItemChecked{}
	case EventItemDeleted:
		m = &ItemDeleted{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Event, err)
		}
	}
	return deref(m), nil
}

// deref returns the value form so callers can type-switch on plain structs.
func deref(m Message) Message {
	switch v := m.(type) {
	case *Authenticate:
		return *v
	case *GroupJoin:
		return *v
	case *GroupJoined:
		return *v
	case *GroupLeave:
		return *v
	case *Error:
		return *v
	case *ItemAdded:
		return *v
	case *ItemEdited:
		return *v
	case *ItemChecked:
		return *v
	case *ItemDeleted:
		return *v
	}
	return m
}
