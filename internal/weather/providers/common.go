package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
// MaxRetries of zero disables retries.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles the resty client and resilience settings.
type HTTPClientConfig struct {
	Client  *resty.Client
	Backoff BackoffConfig
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// newCircuitBreaker builds the breaker guarding one provider. Client errors
// (4xx other than 429) are the caller's problem and do not trip it.
func newCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var upstream *weather.UpstreamError
			if errors.As(err, &upstream) {
				return upstream.StatusCode >= 400 && upstream.StatusCode < 500 &&
					upstream.StatusCode != http.StatusTooManyRequests
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// doRequestWithResilience executes the request, through cb when it is non-nil,
// retrying transport failures, 429 and 5xx responses with exponential backoff
// when retries are configured. Any non-2xx response ends as *weather.UpstreamError.
func doRequestWithResilience(
	ctx context.Context,
	op string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() *resty.Request,
	path string,
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || (cfg.Backoff.MaxRetries > 0 && cfg.Backoff.InitialInterval <= 0) {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, &weather.UpstreamError{Op: op, Err: ctx.Err()}
		}

		call := func() (interface{}, error) {
			resp, execErr := buildRequest().SetContext(ctx).Get(path)
			if execErr != nil {
				var ue *url.Error
				if errors.As(execErr, &ue) {
					ue.URL = common.RedactQuery(ue.URL, "appid", "key")
				}
				return nil, &weather.UpstreamError{Op: op, Err: execErr}
			}
			if !resp.IsSuccess() {
				return nil, &weather.UpstreamError{
					Op:         op,
					StatusCode: resp.StatusCode(),
					Body:       string(resp.Body()),
				}
			}
			return resp.Body(), nil
		}

		var (
			result interface{}
			err    error
		)
		if cb != nil {
			result, err = cb.Execute(call)
		} else {
			result, err = call()
		}

		if err == nil {
			body, ok := result.([]byte)
			if !ok {
				return nil, &weather.UpstreamError{Op: op, Err: fmt.Errorf("unexpected result type %T", result)}
			}
			return body, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.UpstreamError{Op: op, Err: err}
		}

		if attempt >= cfg.Backoff.MaxRetries || !retryable(err) {
			return nil, err
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &weather.UpstreamError{Op: op, Err: ctx.Err()}
		case <-timer.C:
		}

		attempt++
	}
}

func retryable(err error) bool {
	var upstream *weather.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	if upstream.StatusCode == 0 {
		return !errors.Is(upstream.Err, context.Canceled)
	}
	return upstream.StatusCode == http.StatusTooManyRequests || upstream.StatusCode >= 500
}
