package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/volleyball-league/internal/domain/standingsource"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	"github.com/riskibarqy/volleyball-league/internal/platform/resilience"
	"github.com/riskibarqy/volleyball-league/internal/usecase"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL       = "https://api.github.com"
	defaultUserAgent     = "volleyball-league-importer"
	defaultTimeout       = 20 * time.Second
	defaultMaxBodyBytes  = 6 << 20
	defaultRetryBackoff  = time.Second
	acceptHeader         = "application/vnd.github.v3+json"
	rawContentHostSuffix = ".githubusercontent.com"
)

var errGitHubTransient = crerr.New("github transient failure")
var bearerRegex = regexp.MustCompile(`(?i)(bearer|token)\s+[A-Za-z0-9_\-\.]+`)

type ClientConfig struct {
	Source            standingsource.Config
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
}

// Client reads standings files through the GitHub contents API.
type Client struct {
	httpClient   *fasthttp.Client
	source       standingsource.Config
	baseURL      string
	apiHost      string
	userAgent    string
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	flight       singleflight.Group
}

var _ standingsource.Fetcher = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiHost := ""
	if parsed, err := url.Parse(baseURL); err == nil {
		apiHost = parsed.Host
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &fasthttp.Client{
			Name:                userAgent,
			MaxResponseBodySize: maxBody,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxConnsPerHost:     32,
		},
		source:       cfg.Source,
		baseURL:      baseURL,
		apiHost:      apiHost,
		userAgent:    userAgent,
		timeout:      timeout,
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		limiter:      rate.NewLimiter(limit, burst),
		logger:       logger,
		breaker:      resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}
}

type contentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// ListDirectory returns the .json files of dir on the configured branch.
func (c *Client) ListDirectory(ctx context.Context, dir string) ([]standingsource.File, error) {
	dir = strings.Trim(strings.TrimSpace(dir), "/")
	raw, err := c.get(ctx, "list directory", dir, c.contentsURL(dir))
	if err != nil {
		return nil, err
	}

	var entries []contentEntry
	if err := sonic.Unmarshal(raw, &entries); err != nil {
		return nil, &standingsource.FetchError{
			Op:     "list directory",
			Target: dir,
			Err:    fmt.Errorf("%w: %s", standingsource.ErrMalformedListing, abbreviateBody(raw)),
		}
	}

	files := make([]standingsource.File, 0, len(entries))
	for _, entry := range entries {
		if entry.Type != "" && entry.Type != "file" {
			continue
		}
		file := standingsource.File{
			Name:        entry.Name,
			Path:        entry.Path,
			DownloadURL: entry.DownloadURL,
			SHA:         entry.SHA,
			Size:        entry.Size,
		}
		if !file.IsJSON() {
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

// FetchFile downloads one file. The token is only sent to GitHub hosts.
func (c *Client) FetchFile(ctx context.Context, downloadURL string) ([]byte, error) {
	downloadURL = strings.TrimSpace(downloadURL)
	if downloadURL == "" {
		return nil, &standingsource.FetchError{Op: "fetch file", Err: fmt.Errorf("download url is required")}
	}
	return c.get(ctx, "fetch file", downloadURL, downloadURL)
}

func (c *Client) contentsURL(dir string) string {
	segments := strings.Split(dir, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL,
		url.PathEscape(c.source.Owner),
		url.PathEscape(c.source.Repo),
		strings.Join(segments, "/"),
		url.QueryEscape(c.source.Branch),
	)
}

func (c *Client) get(ctx context.Context, op, target, fullURL string) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "github circuit breaker rejected request", "state", c.breaker.State(), "op", op)
		return nil, &standingsource.FetchError{
			Op:     op,
			Target: target,
			Err:    fmt.Errorf("%w: github is temporarily unavailable", usecase.ErrDependencyUnavailable),
		}
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		c.breaker.Record(reqErr, isGitHubCircuitFailure)
		return raw, reqErr
	})
	if err != nil {
		fetchErr := &standingsource.FetchError{Op: op, Target: target, Err: err}
		var statusErr *statusError
		if stderrors.As(err, &statusErr) {
			fetchErr.StatusCode = statusErr.code
		}
		return nil, fetchErr
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, &standingsource.FetchError{Op: op, Target: target, Err: fmt.Errorf("unexpected response payload type %T", out)}
	}
	return raw, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("github status=%d body=%s", e.code, e.body)
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		raw, err := c.do(ctx, fullURL)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !stderrors.Is(err, errGitHubTransient) {
			return nil, err
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("github request failed")
	}
	c.logger.WarnContext(ctx, "github request failed", "url", redactURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, fullURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)
	if c.source.HasToken() && c.trustedHost(fullURL) {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.source.Token))
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		if stderrors.Is(err, fasthttp.ErrBodyTooLarge) {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return nil, fmt.Errorf("%w: send request: %s", errGitHubTransient, c.sanitize(err.Error()))
	}

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return body, nil
	}

	statusErr := &statusError{code: status, body: c.sanitize(abbreviateBody(body))}
	if isRetryableStatus(status) {
		return nil, fmt.Errorf("%w: %w", errGitHubTransient, statusErr)
	}
	return nil, statusErr
}

func (c *Client) trustedHost(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	return host == strings.ToLower(c.apiHost) || strings.HasSuffix(parsed.Hostname(), rawContentHostSuffix)
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if token := strings.TrimSpace(c.source.Token); token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return bearerRegex.ReplaceAllString(value, "$1 REDACTED")
}

func isGitHubCircuitFailure(err error) bool {
	return err != nil && stderrors.Is(err, errGitHubTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("token") {
		query.Set("token", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	parsed.User = nil
	return parsed.String()
}

const maxErrorBodyBytes = 240

// abbreviateBody keeps at most maxErrorBodyBytes of body, cut on a rune
// boundary.
func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxErrorBodyBytes {
		return text
	}
	cut := maxErrorBodyBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
