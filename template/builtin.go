package template

import (
	"context"
	"time"
)

// FakeSleepInput configures the fake_sleep template.
type FakeSleepInput struct {
	// Seconds is how long the job sleeps before succeeding.
	Seconds float64 `json:"seconds"`
}

// FakeSleepOutput is the result of a fake_sleep execution.
type FakeSleepOutput struct {
	SleptSeconds float64 `json:"slept_seconds"`
}

// FakeSleep returns the built-in fake_sleep template. It sleeps for the
// requested duration and succeeds, or fails with the context error if
// the deadline fires first. Useful for exercising the scheduler without
// real work.
func FakeSleep() Definition[FakeSleepInput] {
	return Definition[FakeSleepInput]{
		Name:    "fake_sleep",
		Timeout: 60 * time.Second,
		Handler: func(ctx context.Context, input FakeSleepInput) (any, error) {
			seconds := input.Seconds
			if seconds <= 0 {
				seconds = 1
			}

			select {
			case <-time.After(time.Duration(seconds * float64(time.Second))):
				return FakeSleepOutput{SleptSeconds: seconds}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}

// EchoInput configures the echo template.
type EchoInput struct {
	Message string `json:"message"`
}

// EchoOutput is the result of an echo execution.
type EchoOutput struct {
	Message string `json:"message"`
}

// Echo returns the built-in echo template. It returns its input message
// unchanged. Useful for smoke tests.
func Echo() Definition[EchoInput] {
	return Definition[EchoInput]{
		Name:    "echo",
		Timeout: 10 * time.Second,
		Handler: func(_ context.Context, input EchoInput) (any, error) {
			return EchoOutput{Message: input.Message}, nil
		},
	}
}
