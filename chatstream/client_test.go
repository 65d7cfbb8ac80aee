package chatstream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// collector records delivered fragments and terminal signals.
type collector struct {
	mu        sync.Mutex
	fragments []string
	done      chan struct{}
	errs      chan error
}

func newCollector() *collector {
	return &collector{
		done: make(chan struct{}, 4),
		errs: make(chan error, 4),
	}
}

func (c *collector) callbacks() Callbacks {
	return Callbacks{
		OnFragment: func(frag string) {
			c.mu.Lock()
			c.fragments = append(c.fragments, frag)
			c.mu.Unlock()
		},
		OnDone:  func() { c.done <- struct{}{} },
		OnError: func(err error) { c.errs <- err },
	}
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.fragments...)
}

func (c *collector) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case err := <-c.errs:
		t.Fatalf("got error callback %v, want done", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for done callback")
	}
}

func chatBackend(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamDeliversAllFragmentsInOrder(t *testing.T) {
	text := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghij" // 36 runes
	srv := chatBackend(t, text)
	col := newCollector()

	c := NewClient(srv.URL, "p1", col.callbacks(), Options{
		FragmentSize:  20,
		FragmentDelay: time.Millisecond,
	})
	c.Start([]Message{{Role: "user", Content: "hi"}})
	col.waitDone(t)

	frags := col.snapshot()
	if got := strings.Join(frags, ""); got != text {
		t.Errorf("concatenated fragments = %q, want %q", got, text)
	}
	for i, f := range frags {
		if len([]rune(f)) > 20 {
			t.Errorf("fragment %d has %d runes, want <= 20", i, len([]rune(f)))
		}
	}
	if c.Reply() != text {
		t.Errorf("Reply = %q, want %q", c.Reply(), text)
	}
	if c.Streaming() {
		t.Error("Streaming() = true after completion")
	}

	// Done must fire exactly once.
	select {
	case <-col.done:
		t.Fatal("done callback fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStreamEmptyReply(t *testing.T) {
	srv := chatBackend(t, "")
	col := newCollector()

	c := NewClient(srv.URL, "p1", col.callbacks(), Options{FragmentDelay: time.Millisecond})
	c.Start(nil)
	col.waitDone(t)

	if frags := col.snapshot(); len(frags) != 0 {
		t.Errorf("fragments = %v, want none", frags)
	}
}

func TestStopSuppressesFurtherFragments(t *testing.T) {
	srv := chatBackend(t, strings.Repeat("x", 200))
	col := newCollector()

	c := NewClient(srv.URL, "p1", col.callbacks(), Options{
		FragmentSize:  10,
		FragmentDelay: 30 * time.Millisecond,
	})
	c.Start(nil)

	// Let a couple of fragments through, then stop.
	deadline := time.Now().Add(2 * time.Second)
	for len(col.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no fragments delivered")
		}
		time.Sleep(time.Millisecond)
	}
	c.Stop()
	col.waitDone(t)

	n := len(col.snapshot())
	if n >= 20 {
		t.Fatalf("stream was not cancelled, got all %d fragments", n)
	}

	time.Sleep(150 * time.Millisecond)
	if got := len(col.snapshot()); got != n {
		t.Errorf("fragments after Stop: %d -> %d, want no growth", n, got)
	}
	if c.Streaming() {
		t.Error("Streaming() = true after Stop")
	}
}

func TestStopWithoutStreamIsNoop(t *testing.T) {
	col := newCollector()
	c := NewClient("http://unused", "p1", col.callbacks(), Options{})
	c.Stop()

	select {
	case <-col.done:
		t.Fatal("done callback fired with no stream in flight")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartSupersedesPriorStream(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// First stream: slow backend, resolves after it was superseded.
			time.Sleep(200 * time.Millisecond)
			json.NewEncoder(w).Encode(map[string]string{"text": "OLDOLDOLD"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "new"})
	}))
	defer srv.Close()

	col := newCollector()
	c := NewClient(srv.URL, "p1", col.callbacks(), Options{FragmentDelay: time.Millisecond})

	c.Start(nil)
	time.Sleep(20 * time.Millisecond)
	c.Start(nil) // supersede while the first backend call is pending
	col.waitDone(t)

	// Give the superseded stream's backend call time to resolve.
	time.Sleep(300 * time.Millisecond)

	for _, f := range col.snapshot() {
		if strings.Contains(f, "OLD") {
			t.Fatalf("superseded stream delivered fragment %q", f)
		}
	}
	if got := strings.Join(col.snapshot(), ""); got != "new" {
		t.Errorf("fragments = %q, want %q", got, "new")
	}

	select {
	case <-col.done:
		t.Fatal("superseded stream fired its own done callback")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBackendErrorFiresErrorNotDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	col := newCollector()
	c := NewClient(srv.URL, "p1", col.callbacks(), Options{})
	c.Start(nil)

	select {
	case err := <-col.errs:
		if !strings.Contains(err.Error(), "502") {
			t.Errorf("error = %v, want backend status", err)
		}
	case <-col.done:
		t.Fatal("done fired on backend error")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}

	select {
	case <-col.done:
		t.Fatal("done fired after error; terminal signals are mutually exclusive")
	case <-time.After(50 * time.Millisecond):
	}
	if c.Streaming() {
		t.Error("Streaming() = true after error")
	}
}

func TestRequestCarriesHistoryAndBearer(t *testing.T) {
	var gotBody []byte
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var buf [4096]byte
		n, _ := r.Body.Read(buf[:])
		gotBody = buf[:n]
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer srv.Close()

	col := newCollector()
	c := NewClient(srv.URL, "p1", col.callbacks(), Options{
		BearerToken:   "secret",
		FragmentDelay: time.Millisecond,
	})
	c.Start([]Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	})
	col.waitDone(t)

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer", gotAuth)
	}

	var payload struct {
		PersonaID string    `json:"personaId"`
		Messages  []Message `json:"messages"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	if payload.PersonaID != "p1" {
		t.Errorf("personaId = %q, want %q", payload.PersonaID, "p1")
	}
	if len(payload.Messages) != 2 || payload.Messages[0].Content != "hello" {
		t.Errorf("messages = %+v", payload.Messages)
	}
}

func TestFragment(t *testing.T) {
	cases := []struct {
		text string
		size int
		want []string
	}{
		{"", 5, nil},
		{"abc", 5, []string{"abc"}},
		{"abcde", 5, []string{"abcde"}},
		{"abcdef", 5, []string{"abcde", "f"}},
		{"héllo wörld", 4, []string{"héll", "o wö", "rld"}},
	}
	for _, tc := range cases {
		got := Fragment(tc.text, tc.size)
		if len(got) != len(tc.want) {
			t.Errorf("Fragment(%q, %d) = %v, want %v", tc.text, tc.size, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("Fragment(%q, %d)[%d] = %q, want %q", tc.text, tc.size, i, got[i], tc.want[i])
			}
		}
	}
}
