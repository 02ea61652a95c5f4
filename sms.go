package plusserver

import (
	"context"
	"time"
)

// PutRequest holds the per-message fields of the submit endpoint. Orig,
// Project, Encoding and MaxParts fall back to the service defaults when
// left at their zero values.
type PutRequest struct {
	// Destination is the recipient ID (phone number).
	Destination string
	// Text is the message body.
	Text string
	// Orig is the sender ID.
	Orig string
	// RegisteredDelivery asks the platform to track delivery, which
	// assigns the message a handle for state checks.
	RegisteredDelivery bool
	// Debug simulates the submission; nothing is delivered.
	Debug bool
	// Project is a category shown in the platform message logs.
	Project string
	// Encoding is the text encoding: "iso", "gsm", "utf-8" or "ucs2".
	Encoding string
	// MaxParts is the number of parts a text over 160 characters may be
	// split into.
	MaxParts int
}

// SMS is a single message plus the platform responses recorded for it.
type SMS struct {
	PutRequest

	// PutResponse is set by Send: the submit response, or nil when the
	// submit call failed.
	PutResponse *Response

	// StateResponse is set by CheckState: the most recent state-check
	// response, or nil when the check failed.
	StateResponse *Response
}

// NewSMS creates a message with registered delivery enabled, so its
// delivery state can be checked after sending.
func NewSMS(destination, text string) *SMS {
	return &SMS{PutRequest: PutRequest{
		Destination:        destination,
		Text:               text,
		RegisteredDelivery: true,
	}}
}

// HandleID returns the handle assigned on submission, or "".
func (m *SMS) HandleID() string {
	if m.PutResponse == nil {
		return ""
	}
	return m.PutResponse.HandleID()
}

// State returns the last known delivery state: from the state-check
// response when one was recorded, else from the submit response, else "".
func (m *SMS) State() string {
	resp := m.StateResponse
	if resp == nil {
		resp = m.PutResponse
	}
	if resp == nil {
		return ""
	}
	return resp.State()
}

// Send submits the message through svc. See Service.Send.
func (m *SMS) Send(ctx context.Context, svc *Service, opts *CallOptions) (*SendResult, error) {
	return svc.Send(ctx, m, opts)
}

// CheckState queries the message's delivery state through svc. See
// Service.CheckState.
func (m *SMS) CheckState(ctx context.Context, svc *Service, opts *CheckStateOptions) (string, error) {
	return svc.CheckState(ctx, m, opts)
}

// SendResult holds the outcome of a Send call.
type SendResult struct {
	// HandleID identifies the message for state checks. Set only for
	// submissions with registered delivery outside debug mode.
	HandleID string
	// OK is the success indicator for submissions without a handle.
	OK bool
}

// CheckStateOptions adjusts a CheckState call.
type CheckStateOptions struct {
	// Wait polls until the message arrives instead of checking once.
	Wait bool
	// Timeout bounds the call, or the whole poll with Wait. Zero falls
	// back to the service default.
	Timeout time.Duration
	// FailSilently suppresses communication and request failures; see
	// CallOptions.FailSilently.
	FailSilently bool
}
