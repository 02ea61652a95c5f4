package plusserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config carries the initial settings for NewService. The zero value
// targets the production endpoints with no credentials.
type Config struct {
	// PutURL is the submit endpoint. Empty means DefaultPutURL.
	PutURL string
	// StateURL is the state-check endpoint. Empty means DefaultStateURL.
	StateURL string

	// Project is the default project tag, shown in the platform message
	// logs.
	Project string

	// Username and Password authenticate every call via HTTP Basic Auth.
	// Calls fail with a ConfigurationError while either is empty.
	Username string
	Password string

	// Orig is the default sender ID. Empty lets the platform choose.
	Orig string
	// Encoding is the default text encoding: "iso", "gsm", "utf-8" or
	// "ucs2". Empty leaves the platform default ("iso").
	Encoding string
	// MaxParts is the default number of parts a long text may be split
	// into. Zero leaves the platform default (1).
	MaxParts int

	// Timeout bounds each call unless overridden per call. Zero means no
	// client-side limit.
	Timeout time.Duration

	// WaitInterval is the pause between state checks in WaitUntilArrived.
	// Zero means DefaultWaitInterval.
	WaitInterval time.Duration

	// Logger receives exchange and error logs. If nil, slog.Default() is
	// used.
	Logger *slog.Logger

	// HTTPClient overrides the transport (useful for tests). If nil, a
	// zero http.Client is used.
	HTTPClient *http.Client
}

// Service is a Plusserver platform client. Its methods are safe for
// concurrent use; Configure is not safe to run concurrently with them.
type Service struct {
	putURL   string
	stateURL string
	project  string
	username string
	password string
	orig     string
	encoding string
	maxParts int
	timeout  time.Duration

	waitInterval time.Duration
	logger       *slog.Logger
	client       *http.Client
}

// NewService creates a Service from cfg. Credentials are not required
// until a call is made.
func NewService(cfg Config) *Service {
	s := &Service{
		putURL:       cfg.PutURL,
		stateURL:     cfg.StateURL,
		project:      cfg.Project,
		username:     cfg.Username,
		password:     cfg.Password,
		orig:         cfg.Orig,
		encoding:     cfg.Encoding,
		maxParts:     cfg.MaxParts,
		timeout:      cfg.Timeout,
		waitInterval: cfg.WaitInterval,
		logger:       cfg.Logger,
		client:       cfg.HTTPClient,
	}
	if s.putURL == "" {
		s.putURL = DefaultPutURL
	}
	if s.stateURL == "" {
		s.stateURL = DefaultStateURL
	}
	if s.waitInterval <= 0 {
		s.waitInterval = DefaultWaitInterval
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	return s
}

// ConfigUpdate describes a partial settings change for Configure. Only
// non-nil fields are applied, so any subset can be overwritten, including
// resetting a field to its zero value.
type ConfigUpdate struct {
	PutURL   *string
	StateURL *string
	Project  *string
	Username *string
	Password *string
	Orig     *string
	Encoding *string
	MaxParts *int
	Timeout  *time.Duration
}

// Configure applies upd to the service settings. It must not be called
// while calls are in flight on other goroutines.
func (s *Service) Configure(upd ConfigUpdate) {
	if upd.PutURL != nil {
		s.putURL = *upd.PutURL
	}
	if upd.StateURL != nil {
		s.stateURL = *upd.StateURL
	}
	if upd.Project != nil {
		s.project = *upd.Project
	}
	if upd.Username != nil {
		s.username = *upd.Username
	}
	if upd.Password != nil {
		s.password = *upd.Password
	}
	if upd.Orig != nil {
		s.orig = *upd.Orig
	}
	if upd.Encoding != nil {
		s.encoding = *upd.Encoding
	}
	if upd.MaxParts != nil {
		s.maxParts = *upd.MaxParts
	}
	if upd.Timeout != nil {
		s.timeout = *upd.Timeout
	}
}

// CallOptions adjusts a single call. A nil *CallOptions is valid and
// means service defaults with fail-silently off.
type CallOptions struct {
	// Timeout bounds this call. Zero falls back to the service default;
	// when that is unset too, the call has no client-side limit.
	Timeout time.Duration

	// FailSilently turns CommunicationError and RequestError results
	// into a (nil, nil) return. Configuration and validation errors are
	// returned regardless.
	FailSilently bool
}

func (o *CallOptions) callTimeout(def time.Duration) time.Duration {
	if o != nil && o.Timeout > 0 {
		return o.Timeout
	}
	return def
}

func (o *CallOptions) silent() bool {
	return o != nil && o.FailSilently
}

// PutSMS submits a single message for delivery and returns the parsed
// platform response. Request fields left at their zero value fall back to
// the service defaults.
func (s *Service) PutSMS(ctx context.Context, put PutRequest, opts *CallOptions) (*Response, error) {
	if err := s.checkCredentials(); err != nil {
		s.logger.Error("sms put rejected", "error", err)
		return nil, err
	}

	form := url.Values{}
	form.Set("dest", put.Destination)
	form.Set("data", put.Text)
	form.Set("debug", formBool(put.Debug))
	form.Set("registered_delivery", formBool(put.RegisteredDelivery))

	project := put.Project
	if project == "" {
		project = s.project
	}
	form.Set("project", project)

	orig := put.Orig
	if orig == "" {
		orig = s.orig
	}
	if orig != "" {
		form.Set("orig", orig)
	}

	encoding := put.Encoding
	if encoding == "" {
		encoding = s.encoding
	}
	if encoding != "" {
		form.Set("enc", encoding)
	}

	maxParts := put.MaxParts
	if maxParts == 0 {
		maxParts = s.maxParts
	}
	if maxParts > 0 {
		form.Set("maxparts", strconv.Itoa(maxParts))
	}

	return s.request(ctx, "sms put", s.putURL, form, opts)
}

// CheckSMSState queries the delivery state recorded for a handle. The
// handle comes from the put response of a message submitted with
// registered delivery.
//
// An empty handle is a ValidationError: a message that was never
// submitted, or was submitted without registered delivery, has no state
// to check.
func (s *Service) CheckSMSState(ctx context.Context, handleID string, opts *CallOptions) (*Response, error) {
	if err := s.checkCredentials(); err != nil {
		s.logger.Error("sms state check rejected", "error", err)
		return nil, err
	}
	if handleID == "" {
		err := &ValidationError{Reason: "unable to check state of unsent sms"}
		s.logger.Error("sms state check rejected", "error", err)
		return nil, err
	}

	form := url.Values{}
	form.Set("handle", handleID)

	return s.request(ctx, "sms state check", s.stateURL, form, opts)
}

// WaitUntilArrived polls the state endpoint until the message reaches the
// terminal "arrived" state or the timeout budget runs out. It returns the
// last state response observed, which may be nil when no check succeeded.
//
// The budget resolves like any call timeout; when absent, the loop polls
// until arrival. Each check runs with the remaining budget as its own
// timeout, and the budget shrinks only by time spent inside checks.
// Between checks the loop sleeps WaitInterval, skipping the sleep once
// less than 1.5x the interval remains so the tail of the budget is spent
// on checks rather than waiting.
//
// A check that fails with a timeout ends the loop quietly. Any other
// error ends it quietly under opts.FailSilently and propagates otherwise.
func (s *Service) WaitUntilArrived(ctx context.Context, handleID string, opts *CallOptions) (*Response, error) {
	remaining := opts.callTimeout(s.timeout)
	unlimited := remaining <= 0
	start := time.Now()

	var last *Response
	for unlimited || remaining > 0 {
		attemptStart := time.Now()
		resp, err := s.CheckSMSState(ctx, handleID, &CallOptions{Timeout: remaining})
		if err != nil {
			if !IsTimeout(err) && !opts.silent() {
				return nil, err
			}
			break
		}
		elapsed := time.Since(attemptStart)

		last = resp
		if resp.State() == StateArrived {
			s.logger.Debug("sms arrived", "handle", handleID, "delay", time.Since(start))
			break
		}
		s.logger.Debug("sms not arrived yet", "handle", handleID, "delay", time.Since(start))

		if !unlimited {
			remaining -= elapsed
			if remaining > s.waitInterval*3/2 {
				time.Sleep(s.waitInterval)
			}
		}
	}
	return last, nil
}

// Send submits msg and records the put response on it. When msg asks for
// registered delivery (and is not a debug submission) the result carries
// the delivery handle; otherwise it carries a boolean success flag.
func (s *Service) Send(ctx context.Context, msg *SMS, opts *CallOptions) (*SendResult, error) {
	resp, err := s.PutSMS(ctx, msg.PutRequest, opts)
	if err != nil {
		msg.PutResponse = nil
		return nil, err
	}
	msg.PutResponse = resp

	result := &SendResult{}
	if msg.RegisteredDelivery && !msg.Debug {
		if resp != nil {
			result.HandleID = resp.HandleID()
		}
	} else {
		result.OK = resp != nil && resp.IsOK()
	}
	return result, nil
}

// CheckState queries the delivery state of a previously sent message and
// records the state response on it. With opts.Wait it polls through
// WaitUntilArrived instead of performing a single check. It returns the
// reported state, or "" when no response was obtained.
func (s *Service) CheckState(ctx context.Context, msg *SMS, opts *CheckStateOptions) (string, error) {
	var callOpts *CallOptions
	wait := false
	if opts != nil {
		wait = opts.Wait
		callOpts = &CallOptions{Timeout: opts.Timeout, FailSilently: opts.FailSilently}
	}

	var resp *Response
	var err error
	if wait {
		resp, err = s.WaitUntilArrived(ctx, msg.HandleID(), callOpts)
	} else {
		resp, err = s.CheckSMSState(ctx, msg.HandleID(), callOpts)
	}
	if err != nil {
		msg.StateResponse = nil
		return "", err
	}
	msg.StateResponse = resp
	if resp == nil {
		return "", nil
	}
	return resp.State(), nil
}

func (s *Service) checkCredentials() error {
	if s.username == "" || s.password == "" {
		return &ConfigurationError{Reason: "service credentials not defined"}
	}
	return nil
}

// request performs one authenticated form POST against endpoint and
// applies the classification and suppression rules shared by all calls.
func (s *Service) request(ctx context.Context, op, endpoint string, form url.Values, opts *CallOptions) (*Response, error) {
	silent := opts.silent()

	if timeout := opts.callTimeout(s.timeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return s.fail(op, &CommunicationError{Fault: FaultOther, Err: err}, silent)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.username, s.password)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(op, &CommunicationError{Fault: transportFault(err), Err: err}, silent)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return s.fail(op, &CommunicationError{Fault: transportFault(err), Err: err}, silent)
	}

	s.logger.Debug(op+" response", "url", endpoint, "status", resp.Status)

	if resp.StatusCode >= 400 {
		return s.fail(op, statusError(resp.StatusCode), silent)
	}

	parsed := ParseResponse(string(body))
	if parsed.IsError() {
		return s.fail(op, platformError(parsed), silent)
	}
	return parsed, nil
}

// fail logs a classified error and applies fail-silently suppression.
func (s *Service) fail(op string, err error, silent bool) (*Response, error) {
	s.logger.Error(op+" failed", "error", err)
	if silent {
		return nil, nil
	}
	return nil, err
}

func formBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
