package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/onboard/internal/domain/flow"
	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/config"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/resilience"
)

// Request headers
const (
	HeaderEnvironment = "X-Onboard-Environment"
	HeaderSDKVersion  = "X-Onboard-SDK-Version"
	HeaderPlatform    = "X-Onboard-Platform"
	HeaderAppVersion  = "X-Onboard-App-Version"
	HeaderRequestID   = "X-Request-ID"
)

// Endpoints, relative to the base URL
const (
	PathResolve     = "/v1/placements/{name}/resolve"
	PathCompletions = "/v1/completions"
	PathEvents      = "/v1/events"
)

// Environment selects backend routing. It comes from configuration, never
// from inspecting the running process.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// Options configures a Client
type Options struct {
	BaseURL     string
	APIKey      string
	Environment Environment

	SDKVersion string
	Platform   string
	AppVersion string

	// Timeout bounds each HTTP attempt
	Timeout time.Duration
	// RequestsPerSecond limits outgoing calls; zero is unlimited
	RequestsPerSecond float64
	Burst             int

	// CompletionRetries bounds retries of completion records on transport
	// errors and 5xx responses
	CompletionRetries int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration

	EventQueueSize int
	DisableEvents  bool

	// Breaker overrides the circuit breaker settings
	Breaker *resilience.Settings

	Decoder *flow.Decoder
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// OptionsFromConfig maps loaded configuration onto client options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.API.Key,
		Environment:       Environment(cfg.API.Environment),
		SDKVersion:        cfg.Client.SDKVersion,
		Platform:          cfg.Client.Platform,
		AppVersion:        cfg.Client.AppVersion,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		CompletionRetries: cfg.API.CompletionRetries,
		EventQueueSize:    cfg.Events.QueueSize,
		DisableEvents:     cfg.Events.Disabled,
	}
}

// Client talks to the resolution backend: placement resolution, completion
// records and analytics events.
type Client struct {
	resolve     *resty.Client
	completions *resty.Client
	limiter     *rate.Limiter
	breaker     *resilience.Breaker
	eventsGate  *resilience.Breaker
	events      *dispatcher

	decoder *flow.Decoder
	log     *zap.Logger
	metrics *monitoring.Metrics
}

// New creates a client. Call Close to drain the event queue.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if opts.Environment == "" {
		opts.Environment = Sandbox
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 500 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 10 * time.Second
	}
	if opts.CompletionRetries < 0 {
		opts.CompletionRetries = 0
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("client")
	if opts.Decoder == nil {
		opts.Decoder = flow.NewDecoder()
	}

	// Completion records retry inside the transport; everything else is
	// single-shot over the same pooled connections.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.CompletionRetries
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.CheckRetry = completionRetryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	headers := map[string]string{
		HeaderEnvironment: string(opts.Environment),
		HeaderSDKVersion:  opts.SDKVersion,
		HeaderPlatform:    opts.Platform,
		HeaderAppVersion:  opts.AppVersion,
		"User-Agent":      "onboard-go/" + opts.SDKVersion,
		"Accept":          "application/json",
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	configure := func(r *resty.Client) *resty.Client {
		r.SetBaseURL(base).
			SetJSONMarshaler(sonic.Marshal).
			SetJSONUnmarshaler(sonic.Unmarshal)
		for k, v := range headers {
			if v != "" {
				r.SetHeader(k, v)
			}
		}
		if opts.APIKey != "" {
			r.SetAuthToken(opts.APIKey)
		}
		return r
	}

	resolveClient := configure(resty.New()).
		SetTimeout(opts.Timeout).
		SetTransport(retryClient.HTTPClient.Transport)
	completionClient := configure(resty.NewWithClient(retryClient.StandardClient()))

	settings := resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	if opts.Breaker != nil {
		settings = *opts.Breaker
	}
	settings.IsFailure = isBackendFault
	prevHook := settings.OnStateChange
	settings.OnStateChange = func(name string, from, to resilience.State) {
		log.Info("circuit breaker state changed",
			zap.String("breaker", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
		if prevHook != nil {
			prevHook(name, from, to)
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}

	c := &Client{
		resolve:     resolveClient,
		completions: completionClient,
		limiter:     limiter,
		breaker:     resilience.New("onboard-backend", settings),
		eventsGate:  resilience.New("onboard-events", settings),
		decoder:     opts.Decoder,
		log:         log,
		metrics:     opts.Metrics,
	}
	if !opts.DisableEvents {
		c.events = newDispatcher(opts.EventQueueSize, c.sendEvent, log, opts.Metrics)
	}
	return c, nil
}

// completionRetryPolicy retries connection failures and 5xx responses only.
// 429 and other 4xx are answers, not outages.
func completionRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented, nil
}

// BreakerState exposes the circuit state for diagnostics
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Resolve asks which flow a placement shows for the request's subject. A
// 204 or 404 is a valid empty resolution, not an error. Resolve is never
// retried internally.
func (c *Client) Resolve(ctx context.Context, req placement.Request) (*placement.Resolution, error) {
	if req.UserID == "" && req.DeviceID == "" {
		return nil, &Error{Kind: ErrMissingIdentity}
	}
	if err := req.Validate(); err != nil {
		return nil, &Error{Kind: ErrRequest, Err: err}
	}

	timer := monitoring.NewTimer(c.metrics, "resolve")
	var res *placement.Resolution
	err := c.guard(ctx, func(ctx context.Context) error {
		resp, err := c.resolve.R().
			SetContext(ctx).
			SetHeader(HeaderRequestID, uuid.NewString()).
			SetPathParam("name", req.Placement).
			SetBody(req).
			Post(PathResolve)
		if err != nil {
			return &Error{Kind: ErrNetwork, Err: err}
		}

		switch status := resp.StatusCode(); {
		case status == http.StatusNoContent:
			res = placement.NoFlow(req.Placement, placement.ReasonNoFlow)
			return nil
		case status == http.StatusNotFound:
			res = placement.NoFlow(req.Placement, "placement not found")
			return nil
		case status < 200 || status >= 300:
			return statusError(status, resp.Body())
		}

		decoded, err := placement.Parse(c.decoder, req.Placement, resp.Body())
		if err != nil {
			return &Error{Kind: ErrDecode, Status: resp.StatusCode(), Err: err}
		}
		res = decoded
		return nil
	})
	timer.Stop(outcome(err))
	if err != nil {
		c.log.Debug("resolve failed", zap.String("placement", req.Placement), zap.Error(err))
		return nil, err
	}

	if res.Document != nil && len(res.Document.Diagnostics) > 0 {
		c.metrics.AddDecodeDegradations(req.Placement, len(res.Document.Diagnostics))
		c.log.Debug("flow decoded with degradations",
			zap.String("placement", req.Placement),
			zap.Int("count", len(res.Document.Diagnostics)),
			zap.Stringer("first", res.Document.Diagnostics[0]))
	}
	return res, nil
}

// RecordCompletion sends the completion record. It is confirmed rather than
// fire-and-forget: transport errors and 5xx responses are retried a bounded
// number of times and the final outcome is returned.
func (c *Client) RecordCompletion(ctx context.Context, rec placement.Completion) error {
	if rec.UserID == "" && rec.DeviceID == "" {
		return &Error{Kind: ErrMissingIdentity}
	}
	if err := rec.Validate(); err != nil {
		return &Error{Kind: ErrRequest, Err: err}
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}

	timer := monitoring.NewTimer(c.metrics, "completion")
	err := c.guard(ctx, func(ctx context.Context) error {
		resp, err := c.completions.R().
			SetContext(ctx).
			SetHeader(HeaderRequestID, uuid.NewString()).
			SetBody(rec).
			Post(PathCompletions)
		if err != nil {
			return &Error{Kind: ErrNetwork, Err: err}
		}
		if !resp.IsSuccess() {
			return statusError(resp.StatusCode(), resp.Body())
		}
		return nil
	})
	timer.Stop(outcome(err))
	return err
}

// TrackEvent queues an analytics event. It never blocks; a full queue drops
// the event.
func (c *Client) TrackEvent(ev placement.Event) {
	if c.events == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	c.events.enqueue(ev)
}

// Close drains queued events until ctx expires
func (c *Client) Close(ctx context.Context) error {
	if c.events == nil {
		return nil
	}
	return c.events.close(ctx)
}

type eventBody struct {
	placement.Event
	Platform   string `json:"platform,omitempty"`
	SDKVersion string `json:"sdkVersion,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

func (c *Client) sendEvent(ctx context.Context, ev placement.Event) error {
	body := eventBody{
		Event:      ev,
		Platform:   c.resolve.Header.Get(HeaderPlatform),
		SDKVersion: c.resolve.Header.Get(HeaderSDKVersion),
		AppVersion: c.resolve.Header.Get(HeaderAppVersion),
	}
	timer := monitoring.NewTimer(c.metrics, "event")
	// Events trip their own breaker so a failing analytics endpoint never
	// blocks resolution.
	err := c.guardWith(ctx, c.eventsGate, func(ctx context.Context) error {
		resp, err := c.resolve.R().
			SetContext(ctx).
			SetHeader(HeaderRequestID, uuid.NewString()).
			SetBody(body).
			Post(PathEvents)
		if err != nil {
			return &Error{Kind: ErrNetwork, Err: err}
		}
		if !resp.IsSuccess() {
			return statusError(resp.StatusCode(), resp.Body())
		}
		return nil
	})
	timer.Stop(outcome(err))
	return err
}

// guard applies the rate limiter and the backend circuit breaker around call
func (c *Client) guard(ctx context.Context, call func(context.Context) error) error {
	return c.guardWith(ctx, c.breaker, call)
}

func (c *Client) guardWith(ctx context.Context, b *resilience.Breaker, call func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: ErrNetwork, Message: "rate limiter", Err: err}
	}
	err := b.Execute(ctx, call)
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return &Error{Kind: ErrNetwork, Message: "backend unavailable", Err: err}
	}
	return err
}

func outcome(err error) string {
	var ce *Error
	if err == nil {
		return "success"
	}
	if errors.As(err, &ce) {
		return strings.ReplaceAll(ce.Kind.Error(), " ", "_")
	}
	return "error"
}

// String identifies the client in logs
func (c *Client) String() string {
	return fmt.Sprintf("client(%s)", c.resolve.BaseURL)
}
