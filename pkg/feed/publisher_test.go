package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublisherPosts(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		b, _ := io.ReadAll(req.Body)
		bodies <- b
	}))
	defer srv.Close()

	p := NewPublisher(srv.URL, nil)
	speed := 1.5
	p.Publish(Telemetry{X: 45, Y: 4, Heading: 180, Speed: &speed})
	p.Wait()

	select {
	case b := <-bodies:
		assert.JSONEq(t, `{"x":45,"y":4,"heading":180,"speed":1.5}`, string(b))
	default:
		t.Fatal("no telemetry posted")
	}
}

func TestPublisherToleratesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close()

	p := NewPublisher(srv.URL, NewClient(ClientConfig{URL: "ws://127.0.0.1:1"}))
	p.Publish(Telemetry{X: 45, Y: 4})
	p.Wait()

	NewPublisher("", nil).Publish(Telemetry{})
}

func TestPublisherDoesNotBlockOnStalledRelay(t *testing.T) {
	r := newRelay(t)
	c := NewClient(ClientConfig{URL: r.url(), PingInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Equal(t, EventHello, r.next(t).Type)
	assert.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	// Hold the write lock as a slow relay would.
	c.mu.Lock()
	p := NewPublisher("", c)
	done := make(chan struct{})
	go func() {
		p.Publish(Telemetry{X: 45, Y: 4})
		p.Publish(Telemetry{X: 46, Y: 5})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on the relay")
	}
	c.mu.Unlock()
	p.Wait()

	env := r.next(t)
	assert.Equal(t, EventTelemetry, env.Type)
	assert.JSONEq(t, `{"x":45,"y":4,"heading":0,"speed":null}`, string(env.Data))
	select {
	case extra := <-r.inbox:
		t.Fatalf("sample sent while busy was not dropped: %s", extra.Data)
	case <-time.After(100 * time.Millisecond):
	}
}
