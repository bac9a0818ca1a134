package downloader

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Downloads over HTTP, retrying transient failures with exponential
// backoff. Client errors (4xx other than 429) fail immediately. The
// whole sequence of attempts is bounded by options.Timeout.
type HTTP struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Called before each backoff sleep.
	Notify func(url string, err error, wait time.Duration)
}

func NewHTTP() *HTTP {
	return &HTTP{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func (d *HTTP) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     d.InitialInterval,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         d.MaxInterval,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	// Each attempt inherits the outer deadline, so the per-request
	// client timeout is left unset.
	attemptOptions := GetOptions{MaxSize: options.MaxSize}

	return backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			body, err := HTTPGet(ctx, url, headers, attemptOptions)
			if err == nil {
				return body, nil
			}
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) && fetchErr.Temporary() {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		},
		backoff.WithContext(backoff.WithMaxRetries(b, d.MaxRetries), ctx),
		func(err error, wait time.Duration) {
			if d.Notify != nil {
				d.Notify(url, err, wait)
			}
		},
	)
}
