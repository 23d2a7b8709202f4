package backend

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// FailureKind classifies why a remote call did not succeed
type FailureKind string

const (
	// NetworkFailure means no response was received
	NetworkFailure FailureKind = "network"
	// HTTPFailure is a non-2xx response, with or without a JSON body
	HTTPFailure FailureKind = "http"
	// ApplicationFailure is a 2xx response carrying ok:false
	ApplicationFailure FailureKind = "application"
	// PartialLoadFailure is one concurrent feed failing while another
	// succeeded
	PartialLoadFailure FailureKind = "partial_load"
)

const maxBodyMessage = 300

// Failure is the uniform error for every remote call
type Failure struct {
	Kind    FailureKind
	Op      string
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Op == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts a *Failure from an error chain
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Status is the {ok:false, status, message} shape every failure is
// reported in
type Status struct {
	OK      bool   `json:"ok"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// StatusOf flattens any error into a Status. Errors that are not a
// *Failure keep status 0.
func StatusOf(err error) Status {
	if err == nil {
		return Status{OK: true}
	}
	if f, ok := AsFailure(err); ok {
		return Status{Status: f.Status, Message: f.Message}
	}
	return Status{Message: err.Error()}
}

// failureMessage picks the JSON error field, then the raw body text, then
// a generic message with the status code.
func failureMessage(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		if msg := strings.TrimSpace(gjson.GetBytes(body, "error").String()); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > maxBodyMessage {
			cut := maxBodyMessage
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + "..."
		}
		return text
	}
	return fmt.Sprintf("Request failed (%d)", status)
}
