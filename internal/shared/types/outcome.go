package types

import "time"

// Outcome is the terminal result of a submission. Owned by the correlation
// store once recorded; read-only to callers.
type Outcome struct {
	OK          bool        `json:"ok"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	URL         string      `json:"url,omitempty"`
	Title       string      `json:"title,omitempty"`
	CompletedAt time.Time   `json:"completed_at"`
}

// FromResult converts a peer result frame into an outcome
func FromResult(msg *Result) Outcome {
	return Outcome{
		OK:          msg.OK,
		Result:      msg.Result,
		Error:       msg.Error,
		URL:         msg.URL,
		Title:       msg.Title,
		CompletedAt: time.Now(),
	}
}

// TimeoutOutcome builds the terminal outcome for a request that expired
// with no reply. The message distinguishes "no peer was ever connected"
// from "a peer was connected but did not answer".
func TimeoutOutcome(hadPeer bool) Outcome {
	msg := "timed out waiting for peer reply"
	if !hadPeer {
		msg = "no peer connected: open the extension in an active tab"
	}
	return Outcome{
		OK:          false,
		Error:       msg,
		CompletedAt: time.Now(),
	}
}

// Notification is a one-shot caller-facing message; read once, then gone
type Notification struct {
	OK         bool      `json:"ok"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}
