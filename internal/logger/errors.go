package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrUnknownLogLevel is returned for a Log.LogLevel zerolog can not parse.
	ErrUnknownLogLevel = errors.New("unknown log level")

	// ErrAppNameIsEmpty is returned if Log.AppName was not defined.
	ErrAppNameIsEmpty = errors.New("config Log.AppName can not be empty")

	// ErrServiceNameIsEmpty is returned if Log.ServiceName was not defined.
	ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")
)

// errorOutput receives the events zerolog failed to write.
var errorOutput io.Writer = os.Stderr //nolint:gochecknoglobals

// ErrorHandler reports a failed log write on stderr, the configured
// writers may be the broken ones.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(errorOutput, "zerolog: could not write event: %v\n", err)
}
