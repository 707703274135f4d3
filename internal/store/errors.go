package store

import (
	"context"
	"errors"

	"github.com/simp-lee/mailsync/internal/apiclient"
)

// Describe returns the user-facing text of a failed call. A structured API
// error yields its payload, any other error its message. Cancellation and
// errors without text are unrecognized: ok is false and nothing should be
// shown to the user.
func Describe(err error) (msg string, ok bool) {
	if err == nil || errors.Is(err, context.Canceled) {
		return "", false
	}
	if apiErr, isAPI := apiclient.AsAPIError(err); isAPI {
		if d := apiErr.Description(); d != "" {
			return d, true
		}
	}
	if msg = err.Error(); msg == "" {
		return "", false
	}
	return msg, true
}
