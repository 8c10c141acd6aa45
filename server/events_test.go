package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedwatch/pkg/domain"
	"github.com/umputun/feedwatch/pkg/state"
	"github.com/umputun/feedwatch/server/mocks"
)

// readEvent reads the next "event:/data:" pair from the stream
func readEvent(t *testing.T, sc *bufio.Scanner) (name, data string) {
	t.Helper()
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return "", ""
}

func TestServer_eventsHandler(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.router)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	name, data := readEvent(t, sc)
	assert.Equal(t, "snapshot", name)
	var snapshot map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
	assert.Contains(t, snapshot, state.PathPosts)
	assert.Contains(t, snapshot, state.PathFeeds)

	env.state.Set(state.PathFormStatus, domain.FormStatus{State: domain.FormValidating})
	_, err = env.store.RegisterFeed(domain.Feed{URL: "https://example.com/feed.xml"},
		[]domain.Post{{Title: "one", Link: "https://example.com/1"}})
	require.NoError(t, err)

	name, data = readEvent(t, sc)
	assert.Equal(t, state.PathFormStatus, name)
	assert.JSONEq(t, `{"path":"form.status","value":{"state":"validating"}}`, data)

	name, data = readEvent(t, sc)
	assert.Equal(t, state.PathFeeds, name)
	assert.Contains(t, data, "https://example.com/feed.xml")

	name, data = readEvent(t, sc)
	assert.Equal(t, state.PathPosts, name)
	var evt struct {
		Path  string        `json:"path"`
		Value []domain.Post `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &evt))
	require.Len(t, evt.Value, 1)
	assert.Equal(t, "one", evt.Value[0].Title)
}

func TestServer_eventsHandler_Unsubscribes(t *testing.T) {
	unsubscribed := make(chan struct{})
	obs := &mocks.ObservableMock{
		SubscribeFunc: func(path string, handler state.Handler) func() {
			assert.Equal(t, state.PathRoot, path)
			return func() { close(unsubscribed) }
		},
		SnapshotFunc: func() map[string]any { return map[string]any{"feeds": []string{}} },
	}
	srv := New(Params{Config: &mocks.ConfigProviderMock{}, State: obs})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", http.NoBody).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		srv.eventsHandler(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(obs.SnapshotCalls()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler not finished")
	}
	select {
	case <-unsubscribed:
	default:
		t.Fatal("not unsubscribed")
	}
	assert.Contains(t, w.Body.String(), "event: snapshot\ndata: {\"feeds\":[]}\n\n")
}

func TestEventName(t *testing.T) {
	assert.Equal(t, "root", eventName(state.PathRoot))
	assert.Equal(t, "form.status", eventName(state.PathFormStatus))
}

func TestServer_eventsHandler_NotThrottled(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.router)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// keep more streams open than the api allows concurrent requests
	for i := 0; i < apiThrottle+1; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", http.NoBody)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, "stream %d", i)
		name, _ := readEvent(t, bufio.NewScanner(resp.Body))
		require.Equal(t, "snapshot", name)
	}

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
