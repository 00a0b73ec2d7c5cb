package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/fedbroker/broker"
	"github.com/BaSui01/fedbroker/config"
	"github.com/BaSui01/fedbroker/internal/tlsutil"
	"github.com/BaSui01/fedbroker/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/BaSui01/fedbroker/client"

// errEmpty marks a MAILBOX_EMPTY 404 from a receive endpoint. It never leaves
// the package.
var errEmpty = errors.New("mailbox empty")

var errNoEndpoint = errors.New("endpoint not found")

// Client talks to one broker. It is safe for concurrent use; role handles
// created from it share its HTTP client and settings.
type Client struct {
	base           *url.URL
	http           *http.Client
	pollInterval   time.Duration
	receiveTimeout time.Duration
	serializer     Serializer
	logger         *zap.Logger
	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPollInterval sets the pause between two receive attempts.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithReceiveTimeout sets the timeout used by the round drivers when the
// caller passes zero.
func WithReceiveTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.receiveTimeout = d
		}
	}
}

// WithSerializer sets how structured payloads are encoded.
func WithSerializer(s Serializer) Option {
	return func(c *Client) {
		if s != nil {
			c.serializer = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the broker at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("broker url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		base:           u,
		http:           tlsutil.SecureHTTPClient(10 * time.Second),
		pollInterval:   100 * time.Millisecond,
		receiveTimeout: time.Minute,
		serializer:     JSONSerializer{},
		logger:         zap.NewNop(),
		tracer:         otel.Tracer(tracerName),
		propagator:     otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "broker_client"), zap.String("broker", u.Redacted()))
	return c, nil
}

// NewFromConfig creates a Client from the client section of the configuration.
func NewFromConfig(cfg config.ClientConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	base := []Option{
		WithHTTPClient(tlsutil.SecureHTTPClient(cfg.RequestTimeout)),
		WithPollInterval(cfg.PollInterval),
		WithReceiveTimeout(cfg.ReceiveTimeout),
		WithLogger(logger),
	}
	return New(cfg.BrokerURL, append(base, opts...)...)
}

// Reset clears all broker state.
func (c *Client) Reset(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "reset", nil, nil, nil)
}

// encode turns a structured payload into the raw JSON carried on the wire.
func (c *Client) encode(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := c.serializer.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// do performs one request. A 404 carrying MAILBOX_EMPTY yields errEmpty, any
// other 404 means the route is wrong. Other failures are decoded by decodeError. out, when non-nil, receives the decoded success body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " /" + path
	ctx, span := c.tracer.Start(ctx, "fedbroker.client "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", "/"+path),
		),
	)
	defer span.End()

	u := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		if types.GetErrorCode(decodeError(resp)) == types.ErrMailboxEmpty {
			return errEmpty
		}
		span.SetStatus(codes.Error, "endpoint not found")
		return &TransportError{Op: op, Err: errNoEndpoint}
	case resp.StatusCode >= 300:
		err := decodeError(resp)
		span.SetStatus(codes.Error, err.Error())
		if after := retryAfter(resp); after > 0 {
			return &retryLater{err: err, after: after}
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// call is do for endpoints where 404 has no mailbox meaning.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	err := c.do(ctx, method, path, query, body, out)
	if errors.Is(err, errEmpty) {
		return &TransportError{Op: method + " /" + path, Err: errNoEndpoint}
	}
	return err
}

// poll calls once until it reports a result, fails, ctx is done or timeout
// elapses. An empty mailbox and a retryable refusal (429, 503) both mean
// "not yet"; a Retry-After hint stretches the next sleep. At least one
// attempt is always made.
func (c *Client) poll(ctx context.Context, timeout time.Duration, once func(context.Context) error) error {
	start := time.Now()
	for {
		var wait time.Duration
		err := once(ctx)
		switch {
		case errors.Is(err, errEmpty):
		case types.IsRetryable(err):
			wait = retryHint(err)
			c.logger.Debug("broker asked to retry", zap.Error(err), zap.Duration("retry_after", wait))
		default:
			return err
		}

		elapsed := time.Since(start)
		if elapsed >= timeout {
			return &broker.TimedOutError{Elapsed: elapsed, Requested: timeout}
		}

		timer := time.NewTimer(min(max(c.pollInterval, wait), timeout-elapsed))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// messageBody is the {"message": ...} success envelope.
type messageBody[T any] struct {
	Message T `json:"message"`
}
