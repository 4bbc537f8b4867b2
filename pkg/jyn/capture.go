package jyn

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/jyn/pkg/core"
)

// AssertionError is returned by Capture when an assertion failed.
type AssertionError struct {
	Messages []string
}

func (e *AssertionError) Error() string {
	if len(e.Messages) == 0 {
		return "assertion failed"
	}
	return "assertion failed: " + strings.Join(e.Messages, "; ")
}

type failNow struct{}

// recorder is the T used outside go test.
type recorder struct {
	messages []string
}

func (r *recorder) Errorf(format string, args ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	r.messages = append(r.messages, msg)
}

func (r *recorder) FailNow() {
	panic(failNow{})
}

func (r *recorder) Helper() {}

// Capture runs f with a T that does not belong to go test. A failed
// assertion comes back as *AssertionError and a panicking operation as its
// *core.ExecutionError; any other panic propagates.
func Capture(f func(t T)) (err error) {
	r := &recorder{}
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		switch v := rec.(type) {
		case failNow:
			err = &AssertionError{Messages: r.messages}
		case *core.ExecutionError:
			err = v
		default:
			panic(rec)
		}
	}()

	f(r)
	if len(r.messages) > 0 {
		return &AssertionError{Messages: r.messages}
	}
	return nil
}
