package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/creatorops/outreach/core"
)

// Sender delivers direct messages through the bridge. Send is
// side-effecting: the bridge may have delivered the message even when the
// response is lost, so callers must not retry blindly. The workflow guards
// every Send with the sent ledger instead.
type Sender struct {
	client *Client
}

// NewSender constructs a message sender sharing the bridge client.
func NewSender(client *Client) *Sender {
	return &Sender{client: client}
}

// Send delivers one message to a profile.
func (s *Sender) Send(ctx context.Context, profileURL, text string) error {
	payload, err := json.Marshal(map[string]string{
		"profile_url": profileURL,
		"text":        text,
	})
	if err != nil {
		return core.Permanent("sender", fmt.Errorf("encode message: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.base+"/messages", bytes.NewReader(payload))
	if err != nil {
		return core.Permanent("sender", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.client.Do(req)
	if err != nil {
		return classifyTransportErr("sender", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return classifyStatus("sender", resp)
	}
	return nil
}

var _ core.MessageSender = (*Sender)(nil)
