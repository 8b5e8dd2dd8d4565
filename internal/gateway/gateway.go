// Package gateway talks to the paid chat backend that generates the agent's
// replies. One chat exchange is a single paid HTTP request carrying the user
// message plus the conversation history; the backend settles payment out of
// band and reports the receipt in a response header.
package gateway

import (
	"context"
	"errors"
)

// Sentinel errors returned by [Gateway.Chat]. Callers branch on these to
// decide logging and recovery; none of them are retried automatically.
var (
	// ErrTimeout reports that the exchange exceeded its deadline.
	ErrTimeout = errors.New("gateway: chat timed out")

	// ErrPayment reports that the backend refused the request for payment
	// reasons.
	ErrPayment = errors.New("gateway: payment required")

	// ErrTransport reports a network-level failure reaching the backend.
	ErrTransport = errors.New("gateway: transport failure")

	// ErrMalformed reports a response the client could not interpret.
	ErrMalformed = errors.New("gateway: malformed response")
)

// Turn is one entry of the conversation history.
type Turn struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the turn's text.
	Content string `json:"content"`
}

// Roles used in Turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is one chat exchange. History must not include Message itself.
type Request struct {
	// Message is the user's current utterance.
	Message string

	// History is the prior conversation, oldest first.
	History []Turn
}

// PaymentReceipt is the settlement information the backend reports for a
// paid exchange.
type PaymentReceipt struct {
	Success   bool   `json:"success"`
	TxHash    string `json:"transaction"`
	Network   string `json:"network"`
	PayerAddr string `json:"payer"`
}

// Reply is the backend's answer to one exchange.
type Reply struct {
	// Text is the agent's response.
	Text string

	// Receipt holds payment settlement details when the backend reported
	// them; nil otherwise.
	Receipt *PaymentReceipt
}

// Gateway is the abstraction over the chat backend.
type Gateway interface {
	// Chat performs one exchange. ctx bounds the exchange end to end;
	// exceeding it yields an error wrapping [ErrTimeout].
	Chat(ctx context.Context, req Request) (*Reply, error)
}
