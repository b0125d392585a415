package types

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// MessageType discriminates frames on the peer channel
type MessageType string

const (
	TypeExecute             MessageType = "execute"
	TypeResult              MessageType = "result"
	TypePing                MessageType = "ping"
	TypePong                MessageType = "pong"
	TypeReinitControl       MessageType = "reinit_control"
	TypeRefocusNotification MessageType = "refocus_notification"
)

// Envelope carries only the discriminator; decoded first to pick the shape
type Envelope struct {
	Type MessageType `json:"type"`
}

// Execute is pushed from the bridge to every registered peer
type Execute struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id"`
	Code      string      `json:"code"`
}

// Result is the peer's reply for a single request id
type Result struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id"`
	OK        bool        `json:"ok"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	URL       string      `json:"url,omitempty"`
	Title     string      `json:"title,omitempty"`
}

// Ping is a liveness probe; either side may send it
type Ping struct {
	Type MessageType `json:"type"`
}

// Pong answers a ping
type Pong struct {
	Type MessageType `json:"type"`
}

// ReinitControl is the peer-initiated restore handshake after a page reload.
// The carried config is informational only; the bridge re-issues the session
// start from its own stored copy.
type ReinitControl struct {
	Type   MessageType    `json:"type"`
	Config *ControlConfig `json:"config,omitempty"`
}

// RefocusNotification is an unsolicited peer message for the caller side-channel
type RefocusNotification struct {
	Type    MessageType `json:"type"`
	OK      bool        `json:"ok"`
	Message string      `json:"message"`
}

// DecodeError reports a recognized message type whose payload failed validation
type DecodeError struct {
	MsgType MessageType
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.MsgType, e.Reason)
}

// NewExecute builds an execute frame for a request
func NewExecute(requestID, code string) Execute {
	return Execute{Type: TypeExecute, RequestID: requestID, Code: code}
}

// NewPong builds a pong frame
func NewPong() Pong {
	return Pong{Type: TypePong}
}

// DecodeEnvelope extracts the type discriminator from a raw frame
func DecodeEnvelope(raw []byte) (MessageType, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("frame missing type field")
	}
	return env.Type, nil
}

// DecodeResult parses and validates a result frame
func DecodeResult(raw []byte) (*Result, error) {
	var msg Result
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{MsgType: TypeResult, Reason: err.Error()}
	}
	if msg.RequestID == "" {
		return nil, &DecodeError{MsgType: TypeResult, Reason: "missing request_id"}
	}
	if !msg.OK && msg.Error == "" {
		return nil, &DecodeError{MsgType: TypeResult, Reason: "failed result missing error"}
	}
	return &msg, nil
}

// DecodeReinitControl parses and validates a reinit handshake frame
func DecodeReinitControl(raw []byte) (*ReinitControl, error) {
	var msg ReinitControl
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{MsgType: TypeReinitControl, Reason: err.Error()}
	}
	return &msg, nil
}

// DecodeRefocusNotification parses and validates a notification frame
func DecodeRefocusNotification(raw []byte) (*RefocusNotification, error) {
	var msg RefocusNotification
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{MsgType: TypeRefocusNotification, Reason: err.Error()}
	}
	if msg.Message == "" {
		return nil, &DecodeError{MsgType: TypeRefocusNotification, Reason: "missing message"}
	}
	return &msg, nil
}

// DecodeExecute parses and validates an execute frame (used by the peer side)
func DecodeExecute(raw []byte) (*Execute, error) {
	var msg Execute
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{MsgType: TypeExecute, Reason: err.Error()}
	}
	if msg.RequestID == "" {
		return nil, &DecodeError{MsgType: TypeExecute, Reason: "missing request_id"}
	}
	if msg.Code == "" {
		return nil, &DecodeError{MsgType: TypeExecute, Reason: "missing code"}
	}
	return &msg, nil
}

// Encode marshals any frame to a JSON text frame
func Encode(msg interface{}) ([]byte, error) {
	return sonic.Marshal(msg)
}
