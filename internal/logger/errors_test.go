package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	var buf bytes.Buffer

	prev := errorOutput
	errorOutput = &buf

	t.Cleanup(func() { errorOutput = prev })

	ErrorHandler(errors.New("disk full"))

	assert.Equal(t, "zerolog: could not write event: disk full\n", buf.String())
}
