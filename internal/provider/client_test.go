package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/journey-sms-activity/internal/activity"
)

type fakeTransport struct {
	statuses []int
	body     string
	err      error
	requests []*http.Request
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	status := f.statuses[len(f.requests)-1]
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     http.Header{},
	}, nil
}

func testPayload() *activity.Payload {
	return &activity.Payload{
		TransactionID: "tx-1",
		Recipients:    []string{"+15555550123"},
		Body:          map[string]any{"transactionID": "tx-1", "recipientTo": "+15555550123"},
	}
}

func newTestClient(t *testing.T, cfg Config, transport HTTPClient, waits *[]time.Duration) *Client {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = "https://provider.example/notify"
	}
	opts := []Option{WithHTTPClient(transport)}
	if waits != nil {
		opts = append(opts, WithWaitFunc(func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		}))
	}
	client, err := NewClient(cfg, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return client
}

func TestSendSucceedsFirstAttempt(t *testing.T) {
	transport := &fakeTransport{statuses: []int{200}, body: `{"accepted":true}`}
	client := newTestClient(t, Config{}, transport, nil)

	resp, err := client.Send(context.Background(), testPayload(), SendOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("expected status 200, got %d", resp.Status)
	}
	if string(resp.Body) != `{"accepted":true}` {
		t.Fatalf("unexpected body: %s", resp.Body)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(transport.requests))
	}
}

func TestSendRetriesServerErrorsWithExponentialBackoff(t *testing.T) {
	transport := &fakeTransport{statuses: []int{503, 503, 503}, body: "unavailable"}
	var waits []time.Duration
	client := newTestClient(t, Config{RetryAttempts: 3, RetryBackoff: 100 * time.Millisecond}, transport, &waits)

	_, err := client.Send(context.Background(), testPayload(), SendOptions{})
	reqErr, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != 503 {
		t.Fatalf("expected last status 503, got %d", reqErr.StatusCode)
	}
	if reqErr.HTTPStatus() != http.StatusBadGateway {
		t.Fatalf("5xx should surface as 502, got %d", reqErr.HTTPStatus())
	}
	if len(transport.requests) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(transport.requests))
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("expected %d backoff waits, got %v", len(want), waits)
	}
	for i, d := range want {
		if waits[i] != d {
			t.Fatalf("wait %d: expected %v, got %v", i, d, waits[i])
		}
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	transport := &fakeTransport{statuses: []int{400}, body: "bad payload"}
	var waits []time.Duration
	client := newTestClient(t, Config{RetryAttempts: 3}, transport, &waits)

	_, err := client.Send(context.Background(), testPayload(), SendOptions{})
	reqErr, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != 400 {
		t.Fatalf("expected status 400, got %d", reqErr.StatusCode)
	}
	if reqErr.HTTPStatus() != 400 {
		t.Fatalf("provider 4xx should pass through, got %d", reqErr.HTTPStatus())
	}
	if len(transport.requests) != 1 {
		t.Fatalf("4xx must be terminal after 1 attempt, got %d", len(transport.requests))
	}
	if len(waits) != 0 {
		t.Fatalf("no backoff expected for terminal errors, got %v", waits)
	}
	if reqErr.Details.ResponseBody != "bad payload" {
		t.Fatalf("details should carry the response body, got %+v", reqErr.Details)
	}
}

func TestSendRetriesTransportErrors(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection refused")}
	var waits []time.Duration
	client := newTestClient(t, Config{RetryAttempts: 2, RetryBackoff: 50 * time.Millisecond}, transport, &waits)

	_, err := client.Send(context.Background(), testPayload(), SendOptions{})
	reqErr, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != 0 {
		t.Fatalf("transport failures carry no status, got %d", reqErr.StatusCode)
	}
	if reqErr.HTTPStatus() != http.StatusBadGateway {
		t.Fatalf("transport failure should surface as 502, got %d", reqErr.HTTPStatus())
	}
	if len(transport.requests) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(transport.requests))
	}
}

func TestSendStubModeSkipsNetwork(t *testing.T) {
	transport := &fakeTransport{statuses: []int{500}}
	client := newTestClient(t, Config{StubMode: true}, transport, nil)

	payload := testPayload()
	resp, err := client.Send(context.Background(), payload, SendOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Stubbed {
		t.Fatalf("expected stubbed response")
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("stub responses report 200, got %d", resp.Status)
	}
	if len(transport.requests) != 0 {
		t.Fatalf("stub mode must not call the network, saw %d requests", len(transport.requests))
	}
	echo, ok := resp.Echo.(map[string]any)
	if !ok {
		t.Fatalf("expected payload echo, got %T", resp.Echo)
	}
	if echo["recipientTo"] != "+15555550123" {
		t.Fatalf("echoed payload must be unchanged, got %v", echo)
	}
}

func TestSendHeaderConstruction(t *testing.T) {
	transport := &fakeTransport{statuses: []int{200}, body: "{}"}
	client := newTestClient(t, Config{BasicAuth: "Zm9vOmJhcg=="}, transport, nil)

	_, err := client.Send(context.Background(), testPayload(), SendOptions{
		CorrelationID: "corr-1",
		Headers:       map[string]string{"X-Custom": "yes", "Content-Type": "application/json; charset=utf-8"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := transport.requests[0]
	if got := req.Header.Get("Authorization"); got != "Basic Zm9vOmJhcg==" {
		t.Fatalf("unexpected authorization header: %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Fatalf("caller headers must win on conflict, got %q", got)
	}
	if got := req.Header.Get("X-Correlation-Id"); got != "corr-1" {
		t.Fatalf("correlation id header missing, got %q", got)
	}
	if got := req.Header.Get("X-Custom"); got != "yes" {
		t.Fatalf("caller header missing, got %q", got)
	}
}

func TestSendBearerTokenWhenNoBasicAuth(t *testing.T) {
	transport := &fakeTransport{statuses: []int{200}, body: "{}"}
	client := newTestClient(t, Config{BearerToken: "tok-1"}, transport, nil)

	if _, err := client.Send(context.Background(), testPayload(), SendOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := transport.requests[0].Header.Get("Authorization"); got != "Bearer tok-1" {
		t.Fatalf("unexpected authorization header: %q", got)
	}
}

func TestSendOptionsOverrideAttempts(t *testing.T) {
	transport := &fakeTransport{statuses: []int{503, 503, 503, 503, 200}, body: "{}"}
	var waits []time.Duration
	client := newTestClient(t, Config{RetryAttempts: 2}, transport, &waits)

	resp, err := client.Send(context.Background(), testPayload(), SendOptions{Attempts: 5, Backoff: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("expected eventual success, got %d", resp.Status)
	}
	if len(transport.requests) != 5 {
		t.Fatalf("expected 5 attempts, got %d", len(transport.requests))
	}
}
