// Package chatstream delivers a chat reply to a consumer as an ordered
// sequence of text fragments with cooperative cancellation.
//
// The backend call itself is not incremental: the client issues one request,
// awaits the full reply, then simulates progressive delivery by slicing the
// text into fixed-size fragments paced by a fixed delay. The fragment size and
// delay are parameters, so a true incremental transport can replace the
// simulation later without changing the consumer contract.
package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultFragmentSize is the maximum fragment length in runes.
	DefaultFragmentSize = 20

	// DefaultFragmentDelay paces delivery between fragments.
	DefaultFragmentDelay = 30 * time.Millisecond

	// DefaultTimeout bounds the backend request.
	DefaultTimeout = 60 * time.Second
)

// Message is one entry of the conversation history sent to the backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Callbacks are the consumer-facing delivery hooks. OnDone and OnError are
// mutually exclusive terminal signals; cancellation reports through OnDone,
// indistinguishable from normal completion.
//
// OnFragment is invoked with the client's internal lock held, so it must not
// call back into the Client. OnDone and OnError carry no such restriction.
type Callbacks struct {
	OnFragment func(fragment string)
	OnDone     func()
	OnError    func(err error)
}

// Options tune a Client. Zero values select the defaults above.
type Options struct {
	FragmentSize  int
	FragmentDelay time.Duration
	BearerToken   string
	HTTPClient    *http.Client
}

// Client streams simulated chat replies for one conversation view. At most
// one operation is in flight per Client; Start supersedes any previous one.
type Client struct {
	endpoint   string
	personaID  string
	token      string
	httpClient *http.Client

	fragmentSize int
	delay        time.Duration
	cb           Callbacks

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	streaming  bool
	reply      []rune
}

// NewClient constructs a streaming client for personaID talking to the chat
// backend at endpoint.
func NewClient(endpoint, personaID string, cb Callbacks, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	fragmentSize := opts.FragmentSize
	if fragmentSize <= 0 {
		fragmentSize = DefaultFragmentSize
	}
	delay := opts.FragmentDelay
	if delay <= 0 {
		delay = DefaultFragmentDelay
	}
	return &Client{
		endpoint:     endpoint,
		personaID:    personaID,
		token:        opts.BearerToken,
		httpClient:   httpClient,
		fragmentSize: fragmentSize,
		delay:        delay,
		cb:           cb,
	}
}

// Start begins streaming a reply for history. A stream already in flight is
// cancelled first and all of its remaining callbacks are suppressed, even if
// its backend call resolves later.
func (c *Client) Start(history []Message) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.streaming = true
	c.reply = c.reply[:0]
	c.mu.Unlock()

	go c.run(ctx, gen, history)
}

// Stop cancels the in-flight stream, if any. No fragment callbacks fire after
// Stop returns; the done callback fires exactly once for the stopped stream.
func (c *Client) Stop() {
	c.mu.Lock()
	inFlight := c.cancel != nil
	if inFlight {
		c.cancel()
		c.cancel = nil
		// Bump the generation so the worker goroutine goes silent; Stop owns
		// the terminal signal.
		c.generation++
		c.streaming = false
	}
	c.mu.Unlock()

	if inFlight && c.cb.OnDone != nil {
		c.cb.OnDone()
	}
}

// Streaming reports whether a stream is currently in flight.
func (c *Client) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Reply returns the text accumulated from fragments delivered so far.
func (c *Client) Reply() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.reply)
}

func (c *Client) run(ctx context.Context, gen uint64, history []Message) {
	text, err := c.requestReply(ctx, history)
	if err != nil {
		c.fail(gen, err)
		return
	}

	fragments := Fragment(text, c.fragmentSize)
	for i, frag := range fragments {
		// Cancellation is checked before every send so a cancelled stream
		// never emits a stale fragment.
		if !c.deliver(gen, frag) {
			return
		}
		if i == len(fragments)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
		}
	}

	c.complete(gen)
}

// requestReply issues the single backend call carrying the full history.
func (c *Client) requestReply(ctx context.Context, history []Message) (string, error) {
	payload := struct {
		PersonaID string    `json:"personaId"`
		Messages  []Message `json:"messages"`
	}{
		PersonaID: c.personaID,
		Messages:  history,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("chatstream: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chatstream: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chatstream: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatstream: backend status %d: %s", resp.StatusCode, errBody)
	}

	var reply struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("chatstream: decode response: %w", err)
	}
	return reply.Text, nil
}

// deliver emits one fragment if gen is still the live stream. The generation
// check and the fragment callback share the lock, so a superseded or stopped
// stream can never slip a fragment past its cancellation.
func (c *Client) deliver(gen uint64, frag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.reply = append(c.reply, []rune(frag)...)
	if c.cb.OnFragment != nil {
		c.cb.OnFragment(frag)
	}
	return true
}

func (c *Client) complete(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel() // release the stream context
		c.cancel = nil
	}
	c.streaming = false
	c.mu.Unlock()

	if c.cb.OnDone != nil {
		c.cb.OnDone()
	}
}

func (c *Client) fail(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.streaming = false
	c.mu.Unlock()

	if c.cb.OnError != nil {
		c.cb.OnError(err)
	}
}

// Fragment slices text into order-preserving, non-overlapping rune chunks of
// at most size runes, covering the text exactly once.
func Fragment(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	fragments := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		fragments = append(fragments, string(runes[start:end]))
	}
	return fragments
}
