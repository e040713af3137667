package qr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/config"
)

// ErrProvider wraps every transport, breaker, and status failure from the
// external image service. A failed render never rolls back code issuance;
// callers may retry the render independently.
var ErrProvider = errors.New("qr provider request failed")

// Provider renders a payload string into image bytes. The service behind it
// is opaque; only the payload in and the bytes out matter.
type Provider interface {
	Render(ctx context.Context, payload string) ([]byte, error)
}

type HTTPProvider struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     *zap.Logger
}

var _ Provider = (*HTTPProvider)(nil)

func NewHTTPProvider(cfg config.QRConfig, log *zap.Logger) *HTTPProvider {
	st := gobreaker.Settings{
		Name:        "qr-provider",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](st),
		log:     log,
	}
}

func (p *HTTPProvider) Render(ctx context.Context, payload string) ([]byte, error) {
	body, err := p.breaker.Execute(func() ([]byte, error) {
		return p.fetch(ctx, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return body, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, payload string) ([]byte, error) {
	q := url.Values{}
	q.Set("size", "200x200")
	q.Set("data", payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading provider response: %w", err)
	}
	return body, nil
}
