// Package sources contains one connector per exchange. Each connector maps
// that venue's public market-data API onto the canonical funding record and
// never lets a failure escape its own snapshot.
package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/perpwatch/funding-radar/business/funding/domain"
	"github.com/perpwatch/funding-radar/internal/apm"
	"github.com/perpwatch/funding-radar/internal/apperror"
	"github.com/perpwatch/funding-radar/internal/circuitbreaker"
	"github.com/perpwatch/funding-radar/internal/httpclient"
	"github.com/perpwatch/funding-radar/internal/logger"
)

const (
	tracerName = "github.com/perpwatch/funding-radar/business/funding/infra/sources"

	defaultTimeout    = 30 * time.Second
	rateLimitRetries  = 3
	rateLimitBackoff  = time.Second
	timestampMsCutoff = 10_000_000_000
)

var hundredDec = decimal.NewFromInt(100)

// restClient is the shared REST base every connector builds on: the
// instrumented HTTP client behind a per-venue circuit breaker.
type restClient struct {
	name    string
	http    httpclient.Client
	breaker *gobreaker.CircuitBreaker[*httpclient.Response]
	log     logger.LoggerInterface
	tracer  apm.Tracer
}

func newRESTClient(name, baseURL string, log logger.LoggerInterface) (*restClient, error) {
	tracer := apm.NewTracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName(name),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(defaultTimeout),
		httpclient.WithRateLimitRetry(rateLimitRetries, rateLimitBackoff),
		httpclient.WithTraceOptions(tracer.GetTracer()),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client for %s: %w", name, err)
	}

	cbCfg := circuitbreaker.DefaultConfig(name)
	cbCfg.OnStateChange = func(cbName string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", cbName, "from", from.String(), "to", to.String())
	}

	return &restClient{
		name:    name,
		http:    client,
		breaker: circuitbreaker.New[*httpclient.Response](cbCfg),
		log:     log,
		tracer:  tracer,
	}, nil
}

// getJSON issues a GET and unmarshals the body into out.
func (c *restClient) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	return c.do(ctx, path, func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		if len(query) > 0 {
			req.SetQueryParams(query)
		}
		return req.SetResult(out).Get(ctx, path)
	})
}

// postJSON issues a POST with a JSON body and unmarshals the response into out.
func (c *restClient) postJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, path, func(ctx context.Context, req httpclient.Request) (*httpclient.Response, error) {
		return req.SetBody(body).SetResult(out).Post(ctx, path)
	})
}

func (c *restClient) do(ctx context.Context, path string, call func(context.Context, httpclient.Request) (*httpclient.Response, error)) error {
	ctx, span := c.tracer.StartSpanFromContext(ctx, c.name+" "+path)
	defer span.End()
	span.SetAttributes(
		attribute.String("source", c.name),
		attribute.String("path", path),
	)

	resp, err := c.breaker.Execute(func() (*httpclient.Response, error) {
		return call(ctx, c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("source", c.name)),
		))
	})
	if err != nil {
		code := apperror.CodeSourceError
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			code = apperror.CodeCircuitOpen
		}
		appErr := apperror.New(code, apperror.WithSource(c.name), apperror.WithCause(err))
		span.NoticeError(appErr)
		return appErr
	}
	if resp.IsError() {
		code := apperror.CodeSourceAPIError
		if resp.StatusCode == 429 {
			code = apperror.CodeSourceRateLimited
		}
		appErr := apperror.New(code,
			apperror.WithSource(c.name),
			apperror.WithMessage(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(resp.String(), 200))))
		span.NoticeError(appErr)
		return appErr
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// okSnapshot and failedSnapshot build the two snapshot variants every
// connector returns.
func okSnapshot(name string, start time.Time, records []domain.FundingRateRecord) domain.SourceSnapshot {
	return domain.SourceSnapshot{
		Source:    name,
		Records:   records,
		FetchedAt: time.Now().UTC(),
		Elapsed:   time.Since(start),
	}
}

func failedSnapshot(name string, start time.Time, err error) domain.SourceSnapshot {
	return domain.SourceSnapshot{
		Source:    name,
		FetchedAt: time.Now().UTC(),
		Elapsed:   time.Since(start),
		Err:       apperror.Wrap(err, apperror.CodeSourceError, name),
	}
}

// dec parses a venue numeric string. The second return is false for empty
// or malformed values so one bad instrument can be skipped instead of
// aborting the batch.
func dec(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// decPtr parses an optional venue numeric string. Venues publish zero for
// prices and volumes they do not track, so non-positive values map to nil.
func decPtr(s string) *decimal.Decimal {
	d, ok := dec(s)
	if !ok || !d.IsPositive() {
		return nil
	}
	return &d
}

// decPtrFromFloat converts an optional float field; nil for non-positive
// values, which venues use as "not published".
func decPtrFromFloat(f float64) *decimal.Decimal {
	if f <= 0 {
		return nil
	}
	d := decimal.NewFromFloat(f)
	return &d
}

// intPtr parses an optional integer string; nil means absent.
func intPtr(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// parseUnixTime interprets a venue timestamp that may be in seconds or
// milliseconds. Anything above the cutoff is treated as milliseconds.
func parseUnixTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	if v > timestampMsCutoff {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

// parseUnixTimeString parses a string-encoded unix timestamp.
func parseUnixTimeString(s string) time.Time {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return parseUnixTime(v)
}

// nextFundingOrSchedule returns the venue-published next funding time when
// valid and in the future, falling back to the canonical schedule.
func nextFundingOrSchedule(published time.Time, intervalHours int) time.Time {
	now := time.Now().UTC()
	if !published.IsZero() && published.After(now) {
		return published
	}
	return domain.NextFundingTime(now, intervalHours)
}
