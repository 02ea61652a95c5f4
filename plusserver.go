// Package plusserver is a client for the Plusserver SMS platform.
//
// The platform exposes two form-encoded POST endpoints behind HTTP Basic
// Auth: one to submit a message, one to query delivery state by handle.
// Responses are plain text: a status line such as "REQUEST OK" followed by
// "key = value" attribute lines.
//
// A Service holds endpoints, credentials and defaults. SMS values describe
// a single message and record the platform responses as calls are made:
//
//	svc := plusserver.NewService(plusserver.Config{
//		Username: "user",
//		Password: "secret",
//		Project:  "myproject",
//	})
//	msg := plusserver.NewSMS("+4917512345678", "Hello!")
//	result, err := svc.Send(ctx, msg, nil)
//	if err != nil {
//		return err
//	}
//	state, err := svc.CheckState(ctx, msg, &plusserver.CheckStateOptions{
//		Wait:    true,
//		Timeout: 30 * time.Second,
//	})
package plusserver

import "time"

// Delivery states reported by the platform. Arrived is the only terminal
// state; a message may pass through new, processed and retry on the way.
const (
	StateNew       = "new"
	StateProcessed = "processed"
	StateArrived   = "arrived"
	StateRetry     = "retry"
	StateError     = "error"
)

// Status-line markers opening every platform response.
const (
	MessageOK    = "REQUEST OK"
	MessageError = "ERROR"
)

// Production endpoints, used when Config leaves them empty.
const (
	DefaultPutURL   = "https://sms.openit.de/put.php"
	DefaultStateURL = "https://sms.openit.de/sms-state.php"
)

// DefaultWaitInterval is the pause between two state checks in
// WaitUntilArrived when Config.WaitInterval is unset.
const DefaultWaitInterval = 500 * time.Millisecond
