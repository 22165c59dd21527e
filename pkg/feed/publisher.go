package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Publisher sends vehicle telemetry to the relay. Delivery is best effort:
// failures are logged and never retried. Publish never blocks the caller.
type Publisher struct {
	url    string
	client *http.Client
	ws     *Client

	sending atomic.Bool // a relay send is in flight
	wg      sync.WaitGroup
}

// NewPublisher posts telemetry to url (skipped when empty) and mirrors it
// over ws when a session is open (ws may be nil).
func NewPublisher(url string, ws *Client) *Publisher {
	return &Publisher{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		ws:     ws,
	}
}

// Publish sends t without waiting for the result. A sample arriving while
// the previous relay send is still in flight is not mirrored over the relay.
func (p *Publisher) Publish(t Telemetry) {
	if p.ws != nil && p.ws.Connected() {
		if p.sending.CompareAndSwap(false, true) {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				defer p.sending.Store(false)
				if err := p.ws.Send(EventTelemetry, t); err != nil {
					log.Debugf("Telemetry over relay: %v", err)
				}
			}()
		} else {
			log.Debug("Relay busy, dropping telemetry sample")
		}
	}
	if p.url == "" {
		return
	}

	body, err := json.Marshal(t)
	if err != nil {
		log.Errorf("Encode telemetry: %v", err)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.post(body)
	}()
}

func (p *Publisher) post(body []byte) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		log.Debugf("Telemetry request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Debugf("Telemetry post: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Debugf("Telemetry post: status %d", resp.StatusCode)
	}
}

// Wait blocks until in-flight posts finish.
func (p *Publisher) Wait() {
	p.wg.Wait()
}
