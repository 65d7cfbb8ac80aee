package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout for directory lookups. Lookups sit on the hot path of every
// synthesis request, so they are kept short.
const DefaultTimeout = 10 * time.Second

// Client reads invitation and persona records over the directory's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient constructs a directory client. token is an optional bearer
// credential for the directory service.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: baseURL,
		token:   token,
	}
}

type invitationRecord struct {
	PersonaID string `json:"persona_id"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

type personaRecord struct {
	VoiceID string `json:"voice_id"`
}

// InvitationByToken implements Directory.
func (c *Client) InvitationByToken(ctx context.Context, token string) (Invitation, error) {
	var rec invitationRecord
	if err := c.get(ctx, "/invitations/"+url.PathEscape(token), &rec); err != nil {
		return Invitation{}, err
	}
	return Invitation{
		Token:     token,
		PersonaID: rec.PersonaID,
		Role:      ParseRole(rec.Role),
		Status:    ParseStatus(rec.Status),
	}, nil
}

// PersonaVoice implements Directory.
func (c *Client) PersonaVoice(ctx context.Context, personaID string) (string, error) {
	var rec personaRecord
	if err := c.get(ctx, "/personas/"+url.PathEscape(personaID), &rec); err != nil {
		return "", err
	}
	return rec.VoiceID, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("directory: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("directory: unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory: decode response: %w", err)
	}
	return nil
}
