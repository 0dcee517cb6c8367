package pipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyKeepSet = errors.New("silence cut would remove the entire timeline")
	ErrZeroDuration = errors.New("source has zero duration")
	ErrSameFile     = errors.New("output is the same file as input")
)

// error classifications returned by Kind
const (
	KindConfiguration = "configuration"
	KindDelegate      = "delegate"
	KindCanceled      = "canceled"
	KindInternal      = "internal"
)

// ConfigError is a request that can never succeed as given. It is not retried.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) ErrorKind() string {
	return KindConfiguration
}

func configError(reason string, err error) error {
	return &ConfigError{Reason: reason, Err: err}
}

// Kind classifies err for exit messages and job statuses.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	var kinded interface{ ErrorKind() string }
	if errors.As(err, &kinded) {
		return kinded.ErrorKind()
	}
	return KindInternal
}
