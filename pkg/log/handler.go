package log

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

func init() {
	zerolog.ErrorStackFieldName = StacktraceKey
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if st := extractStacktrace(err); st != "" {
			return st
		}
		return nil
	}
}

// extractStacktrace returns the first stack trace recorded by cockroachdb/errors
// in the chain of err.
func extractStacktrace(err error) string {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		details := errors.GetSafeDetails(e).SafeDetails
		if len(details) > 0 && details[0] != "" {
			return details[0]
		}
	}
	return ""
}
