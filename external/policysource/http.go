package policysource

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/faultline/internal/domain/faultpolicy"
	"github.com/valyala/fasthttp"
)

const (
	defaultHTTPPollInterval = 30 * time.Second
	defaultHTTPTimeout      = 10 * time.Second
)

type HTTPSourceConfig struct {
	URL          string
	BearerToken  string
	Timeout      time.Duration
	PollInterval time.Duration
}

// HTTPSource polls a JSON policy endpoint. Watch fires only when the body
// hash changes, so a chatty endpoint does not cause reload churn.
type HTTPSource struct {
	client       *fasthttp.Client
	url          string
	bearerToken  string
	timeout      time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewHTTPSource(cfg HTTPSourceConfig, logger *slog.Logger) (*HTTPSource, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, crerr.New("policy url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, crerr.Newf("policy url %q is not http(s)", url)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultHTTPPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSource{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		url:          url,
		bearerToken:  strings.TrimSpace(cfg.BearerToken),
		timeout:      timeout,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

func (s *HTTPSource) Load(_ context.Context) (faultpolicy.Policy, error) {
	raw, err := s.fetch()
	if err != nil {
		return faultpolicy.Policy{}, err
	}

	policy, err := decodePolicy(raw, formatJSON)
	if err != nil {
		return faultpolicy.Policy{}, crerr.Wrapf(err, "policy url %s", s.url)
	}

	return policy, nil
}

func (s *HTTPSource) Watch(ctx context.Context, onChange func(faultpolicy.Policy)) error {
	var lastHash [sha256.Size]byte
	if raw, err := s.fetch(); err == nil {
		lastHash = sha256.Sum256(raw)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		raw, err := s.fetch()
		if err != nil {
			s.logger.WarnContext(ctx, "policy poll failed", "url", s.url, "error", err)
			continue
		}

		hash := sha256.Sum256(raw)
		if hash == lastHash {
			continue
		}
		lastHash = hash

		policy, err := decodePolicy(raw, formatJSON)
		if err != nil {
			s.logger.ErrorContext(ctx, "policy change rejected", "url", s.url, "error", err)
			continue
		}

		s.logger.InfoContext(ctx, "policy changed", "url", s.url)
		onChange(policy)
	}
}

func (s *HTTPSource) fetch() ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if s.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.bearerToken)
	}

	if err := s.client.DoTimeout(req, resp, s.timeout); err != nil {
		return nil, crerr.Wrapf(err, "fetch policy url %s", s.url)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, crerr.Newf("fetch policy url %s: status %d", s.url, resp.StatusCode())
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())

	return out, nil
}
