package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a chat exchange when no explicit timeout is set.
// Replies come from an LLM, so this is generous.
const DefaultTimeout = 120 * time.Second

const chatPath = "/chat"

// Ensure Client implements the Gateway interface.
var _ Gateway = (*Client)(nil)

// Identity is the persona and payer information sent with every exchange.
type Identity struct {
	// AgentID is the backend token identifier of the agent persona.
	AgentID string

	// SenderName labels the human side of the conversation.
	SenderName string

	// SenderID is the payer wallet address.
	SenderID string

	// Currency is the payment currency announced on each request.
	Currency string
}

// ChatID derives the stable conversation identifier.
func (id Identity) ChatID() string {
	return fmt.Sprintf("%s-%s", id.SenderID, id.AgentID)
}

// Option is a functional option for Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-exchange deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// Client implements Gateway over HTTP.
type Client struct {
	baseURL      string
	identity     Identity
	paymentToken string
	timeout      time.Duration
	http         *http.Client
	log          *slog.Logger
}

// NewClient constructs a Client for the backend at baseURL. paymentToken
// authorises paid requests and may be empty, in which case the backend will
// answer 402.
func NewClient(baseURL string, id Identity, paymentToken string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("gateway: baseURL must not be empty")
	}
	if id.AgentID == "" {
		return nil, errors.New("gateway: identity.AgentID must not be empty")
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		identity:     id,
		paymentToken: paymentToken,
		timeout:      DefaultTimeout,
		http:         &http.Client{},
		log:          slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// chatInput is the wire request body.
type chatInput struct {
	Message     string `json:"message"`
	SenderName  string `json:"senderName"`
	SenderID    string `json:"senderId"`
	ChatHistory []Turn `json:"chatHistory"`
	AgentName   string `json:"agentName"`
	ChatID      string `json:"chatId"`
	IsGroupChat bool   `json:"isGroupChat"`
	Currency    string `json:"currency"`
}

// chatOutput is the wire response body. The backend reports errors in-band
// with a 200 status as well as via HTTP status codes.
type chatOutput struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Chat implements Gateway.
func (c *Client) Chat(ctx context.Context, req Request) (*Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("gateway: message must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	history := req.History
	if history == nil {
		history = []Turn{}
	}
	body, err := json.Marshal(chatInput{
		Message:     req.Message,
		SenderName:  c.identity.SenderName,
		SenderID:    c.identity.SenderID,
		ChatHistory: history,
		AgentName:   c.identity.AgentID,
		ChatID:      c.identity.ChatID(),
		IsGroupChat: false,
		Currency:    c.identity.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.paymentToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.paymentToken)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w after %v: %v", ErrTimeout, c.timeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w after %v: %v", ErrTimeout, c.timeout, err)
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	if resp.StatusCode == http.StatusPaymentRequired {
		return nil, fmt.Errorf("%w: %s", ErrPayment, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out chatOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrMalformed, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: backend error: %s", ErrMalformed, out.Error)
	}
	if out.Response == "" {
		return nil, fmt.Errorf("%w: empty response text", ErrMalformed)
	}

	reply := &Reply{Text: out.Response}
	if hdr := resp.Header.Get("X-Payment-Response"); hdr != "" {
		receipt, err := decodePaymentResponse(hdr)
		if err != nil {
			// Settlement details are informational; the reply is usable
			// without them.
			c.log.Warn("undecodable payment response header", "error", err)
		} else {
			reply.Receipt = receipt
		}
	}
	return reply, nil
}

// decodePaymentResponse parses the base64-encoded JSON settlement header.
func decodePaymentResponse(hdr string) (*PaymentReceipt, error) {
	raw, err := base64.StdEncoding.DecodeString(hdr)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	var receipt PaymentReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &receipt, nil
}
