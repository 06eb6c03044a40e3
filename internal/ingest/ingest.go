// Package ingest implements the CT firehose client (spec.md §5 C1): a
// reconnecting WebSocket reader that parses certificate_update envelopes
// and fans out one work item per domain to the bounded queue. The
// reconnect/backoff loop is grounded on other_examples'
// jonasbg-certstream-monitor client.go monitor()/calculateBackoff(), and
// the envelope parsing (message_type, data.leaf_cert.all_domains, issuer O)
// is grounded on original_source's certstream/listener.py on_message. The
// client-side Dial itself is the teacher's gorilla/websocket dependency,
// used here as a client instead of internal/api/websocket.go's
// server-side Hub/Upgrader.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rawblock/phishsentry/internal/sentryerr"
	"github.com/rawblock/phishsentry/pkg/types"
)

// envelope mirrors the subset of the certstream JSON message this sentry
// consumes (§9 "Dynamic certificate schema").
type envelope struct {
	MessageType string `json:"message_type"`
	Data        struct {
		Seen     interface{}            `json:"seen"`
		LeafCert map[string]interface{} `json:"leaf_cert"`
	} `json:"data"`
}

// Sink receives one WorkItem per domain extracted from a certificate
// update. TryPush-shaped: implementations should be non-blocking and
// report whether the item was accepted.
type Sink interface {
	TryPush(item types.WorkItem) bool
}

// Client reconnects to a CT firehose WebSocket endpoint and fans parsed
// work items out to a Sink.
type Client struct {
	url          string
	sink         Sink
	log          zerolog.Logger
	initialBack  time.Duration
	maxBack      time.Duration
	droppedCount int
}

// Config configures a Client.
type Config struct {
	URL                     string
	ReconnectInitialBackoff time.Duration
	ReconnectMaxBackoff     time.Duration
}

// New builds a Client. Zero-value backoffs default to spec.md's 1s/60s.
func New(cfg Config, sink Sink, log zerolog.Logger) *Client {
	if cfg.ReconnectInitialBackoff <= 0 {
		cfg.ReconnectInitialBackoff = time.Second
	}
	if cfg.ReconnectMaxBackoff <= 0 {
		cfg.ReconnectMaxBackoff = 60 * time.Second
	}
	return &Client{
		url:         cfg.URL,
		sink:        sink,
		log:         log,
		initialBack: cfg.ReconnectInitialBackoff,
		maxBack:     cfg.ReconnectMaxBackoff,
	}
}

// Run connects and reconnects until ctx is cancelled, doubling the
// reconnect delay on each consecutive failure up to maxBack and resetting
// it to initialBack after any successful read loop (§5 C1, §6).
func (c *Client) Run(ctx context.Context) {
	backoff := c.initialBack

	for {
		if ctx.Err() != nil {
			return
		}

		connected := c.connectAndProcess(ctx)
		if ctx.Err() != nil {
			return
		}

		if connected {
			backoff = c.initialBack
		} else if backoff < c.maxBack {
			backoff *= 2
			if backoff > c.maxBack {
				backoff = c.maxBack
			}
		}

		c.log.Warn().Dur("backoff", backoff).Msg("ct firehose disconnected, reconnecting")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// connectAndProcess dials once and reads until the connection drops or ctx
// is cancelled. Returns true if at least one message was read successfully
// before the connection ended, signalling the backoff should reset.
func (c *Client) connectAndProcess(ctx context.Context) bool {
	// connID correlates every log line from one dial attempt through its
	// read loop, since reconnects otherwise interleave indistinguishably.
	connID := uuid.New().String()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		wrapped := sentryerr.New(sentryerr.ProtocolLoss, "ingest.dial", err)
		c.log.Error().Err(wrapped).Str("url", c.url).Str("conn_id", connID).Msg("ct firehose dial failed")
		return false
	}
	defer conn.Close()

	c.log.Info().Str("url", c.url).Str("conn_id", connID).Msg("ct firehose connected")

	readSucceeded := false
	for {
		select {
		case <-ctx.Done():
			return readSucceeded
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			wrapped := sentryerr.New(sentryerr.ProtocolLoss, "ingest.read", err)
			c.log.Error().Err(wrapped).Str("conn_id", connID).Msg("ct firehose read failed")
			return readSucceeded
		}
		readSucceeded = true

		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		wrapped := sentryerr.New(sentryerr.Malformed, "ingest.parse", err)
		c.log.Warn().Err(wrapped).Msg("malformed ct firehose message")
		return
	}
	if env.MessageType != "certificate_update" {
		return
	}

	issuerOrg := extractIssuerOrg(env.Data.LeafCert)
	seenAt := extractSeenAt(env.Data.Seen)
	domains := extractAllDomains(env.Data.LeafCert)

	for _, domain := range domains {
		item := types.WorkItem{
			Domain:    domain,
			IssuerOrg: issuerOrg,
			SeenAt:    seenAt,
			LeafCert:  env.Data.LeafCert,
		}
		if !c.sink.TryPush(item) {
			c.droppedCount++
			if c.droppedCount%100 == 0 {
				c.log.Warn().Int("dropped_total", c.droppedCount).Msg("work queue saturated, dropping cert domains")
			}
		}
	}
}

func extractIssuerOrg(leafCert map[string]interface{}) string {
	issuer, ok := leafCert["issuer"].(map[string]interface{})
	if !ok {
		return "Unknown"
	}
	org, ok := issuer["O"].(string)
	if !ok || org == "" {
		return "Unknown"
	}
	return org
}

func extractAllDomains(leafCert map[string]interface{}) []string {
	raw, ok := leafCert["all_domains"].([]interface{})
	if !ok {
		return nil
	}
	domains := make([]string, 0, len(raw))
	for _, d := range raw {
		if s, ok := d.(string); ok && s != "" {
			domains = append(domains, s)
		}
	}
	return domains
}

func extractSeenAt(seen interface{}) string {
	switch v := seen.(type) {
	case string:
		return v
	case float64:
		return time.Unix(int64(v), 0).UTC().Format(time.RFC3339)
	default:
		return time.Now().UTC().Format(time.RFC3339)
	}
}
