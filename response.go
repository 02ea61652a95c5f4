package plusserver

import "strings"

// Response is a parsed platform response: the status line plus the
// "key = value" attributes that follow it.
type Response struct {
	// Message is the first line of the payload, "" for an empty payload.
	Message string

	keys   []string
	values map[string]string
}

// ParseResponse parses a raw response body. It never fails: lines without
// a "=" are dropped, and an empty body yields an empty Message with no
// attributes. Each attribute line is split on its first "=", so values may
// themselves contain "="; keys and values are trimmed of surrounding
// whitespace. A duplicate key keeps its original position and takes the
// last value.
func ParseResponse(text string) *Response {
	resp := &Response{values: make(map[string]string)}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	resp.Message = lines[0]
	for _, line := range lines[1:] {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := resp.values[key]; !seen {
			resp.keys = append(resp.keys, key)
		}
		resp.values[key] = strings.TrimSpace(value)
	}
	return resp
}

// Get returns the attribute value for key, or "" when absent.
func (r *Response) Get(key string) string { return r.values[key] }

// Lookup returns the attribute value for key and whether it is present.
func (r *Response) Lookup(key string) (string, bool) {
	value, ok := r.values[key]
	return value, ok
}

// Keys returns the attribute keys in order of first appearance.
func (r *Response) Keys() []string {
	return append([]string(nil), r.keys...)
}

// HandleID returns the message handle assigned by the platform, or "".
func (r *Response) HandleID() string { return r.values["handle"] }

// State returns the delivery state reported by the platform, or "".
func (r *Response) State() string { return r.values["state"] }

// ErrorText returns the platform's error description, or "".
func (r *Response) ErrorText() string { return r.values["error"] }

// IsOK reports whether the status line signals success.
func (r *Response) IsOK() bool { return r.Message == MessageOK }

// IsError reports whether the status line signals failure.
func (r *Response) IsError() bool { return r.Message == MessageError }
