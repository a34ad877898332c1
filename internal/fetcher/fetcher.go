package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nao1215/knowledgemesh/internal/model"
	"github.com/nao1215/knowledgemesh/internal/urlnorm"
)

// hardLimitFactor bounds how large a declared Content-Length may be
// relative to the soft body cap before the fetch is rejected outright.
// Reading and discarding, say, a gigabyte to keep 1.5MB of it wastes
// bandwidth on both ends.
const hardLimitFactor = 64

// defaultBackoff is the base delay between retry attempts. The delay
// doubles on each subsequent attempt.
const defaultBackoff = 500 * time.Millisecond

// Fetcher performs single-page HTTP GETs with retry, timeout, and size
// guards, and extracts visible text plus outbound links from HTML.
//
// A Fetcher is safe for concurrent use: all fields are set at
// construction and never mutated.
type Fetcher struct {
	// client is the HTTP client used for all requests.
	client *http.Client

	// timeout is the per-attempt deadline.
	timeout time.Duration

	// maxRetries is the number of extra attempts on transient failure.
	maxRetries int

	// maxBytes is the soft cap on response body size. Bodies beyond it
	// are truncated, not rejected.
	maxBytes int64

	// sameDomainOnly filters outbound links to the source URL's exact host.
	sameDomainOnly bool

	// userAgent is sent as the User-Agent header.
	userAgent string

	// cookie is an optional Cookie header value.
	cookie string

	// headers are additional request headers.
	headers map[string]string

	// backoff is the base delay between retries; doubles per attempt.
	backoff time.Duration

	// logger receives one record per attempt.
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxRetries sets the number of retries on transient failure.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithMaxBytes sets the soft body-size cap in bytes.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// WithSameDomainOnly filters outbound links to the source host when enabled.
// Matching is exact normalized-host equality; subdomains do not match.
func WithSameDomainOnly(enabled bool) Option {
	return func(f *Fetcher) {
		f.sameDomainOnly = enabled
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithCookie sets a Cookie header value sent with every request.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithHeaders sets additional request headers.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithHTTPClient replaces the HTTP client. Mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithBackoff sets the base retry delay. Mainly for tests.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher with the given options.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:    10 * time.Second,
		maxRetries: 3,
		maxBytes:   1_500_000,
		userAgent:  "KnowledgeMesh/1.0 (+https://github.com/nao1215/knowledgemesh)",
		backoff:    defaultBackoff,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
					return fmt.Errorf("redirect to non-HTTP(S) target %q", req.URL)
				}
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return nil
			},
		}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// allowedContentTypes is the content-type allowlist. Anything else fails
// with KindUnsupportedContentType before the body is read.
var allowedContentTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
	"application/xml":       true,
	"text/xml":              true,
	"text/plain":            true,
}

// isTextLike reports whether a media type passes the allowlist.
func isTextLike(mediaType string) bool {
	return allowedContentTypes[mediaType] || strings.HasPrefix(mediaType, "text/")
}

// Fetch retrieves the page at the given normalized URL.
//
// Transient failures (timeout, reset connection, HTTP 429/5xx) are
// retried up to the configured retry count with doubling backoff.
// Everything else fails immediately with a classified *Error. The body
// is truncated at the soft cap and extraction proceeds on whatever was
// read; truncation is never an error.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*model.FetchResult, error) {
	var lastErr *Error

	attempts := f.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// Doubling backoff: backoff, 2*backoff, 4*backoff, ...
			delay := f.backoff << (attempt - 2)
			select {
			case <-ctx.Done():
				return nil, &Error{Kind: KindTimeout, URL: pageURL, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		result, fetchErr, transient := f.attempt(ctx, pageURL, attempt)
		if fetchErr == nil {
			result.Attempts = attempt
			return result, nil
		}

		lastErr = fetchErr
		if !transient {
			return nil, fetchErr
		}
	}

	return nil, lastErr
}

// attempt performs one HTTP request. The third return value reports
// whether the failure is transient and worth retrying.
func (f *Fetcher) attempt(ctx context.Context, pageURL string, attempt int) (*model.FetchResult, *Error, bool) {
	start := time.Now()

	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		fe := &Error{Kind: KindClient, URL: pageURL, Err: err}
		f.logAttempt(pageURL, attempt, "invalid_request", 0, start)
		return nil, fe, false
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		fe, transient := classifyTransportError(pageURL, err)
		f.logAttempt(pageURL, attempt, string(fe.Kind), 0, start)
		return nil, fe, transient
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if fe, transient := classifyStatus(pageURL, resp.StatusCode); fe != nil {
		f.logAttempt(pageURL, attempt, string(fe.Kind), resp.StatusCode, start)
		return nil, fe, transient
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType != "" {
		if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
			mediaType = parsed
		}
	}
	if mediaType == "" || !isTextLike(mediaType) {
		fe := &Error{Kind: KindUnsupportedContentType, URL: pageURL,
			Err: fmt.Errorf("content type %q", mediaType)}
		f.logAttempt(pageURL, attempt, string(fe.Kind), resp.StatusCode, start)
		return nil, fe, false
	}

	if resp.ContentLength > f.maxBytes*hardLimitFactor {
		fe := &Error{Kind: KindTooLarge, URL: pageURL,
			Err: fmt.Errorf("declared content length %d", resp.ContentLength)}
		f.logAttempt(pageURL, attempt, string(fe.Kind), resp.StatusCode, start)
		return nil, fe, false
	}

	// Read one byte past the cap to learn whether truncation happened.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		fe, transient := classifyTransportError(pageURL, err)
		f.logAttempt(pageURL, attempt, string(fe.Kind), resp.StatusCode, start)
		return nil, fe, transient
	}

	truncated := int64(len(body)) > f.maxBytes
	if truncated {
		body = body[:f.maxBytes]
		// The byte cap can land inside a multi-byte rune. Drop the
		// partial rune so extraction receives valid UTF-8.
		for len(body) > 0 {
			r, size := utf8.DecodeLastRune(body)
			if r != utf8.RuneError || size > 1 {
				break
			}
			body = body[:len(body)-1]
		}
	}

	result := &model.FetchResult{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: mediaType,
		Truncated:   truncated,
		FetchedAt:   time.Now(),
		Links:       []string{},
	}

	p, err := newParser(pageURL)
	if err != nil {
		fe := &Error{Kind: KindClient, URL: pageURL, Err: err}
		f.logAttempt(pageURL, attempt, string(fe.Kind), resp.StatusCode, start)
		return nil, fe, false
	}

	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		parsed, err := p.parse(strings.NewReader(string(body)))
		if err != nil {
			fe := &Error{Kind: KindClient, URL: pageURL, Err: err}
			f.logAttempt(pageURL, attempt, string(fe.Kind), resp.StatusCode, start)
			return nil, fe, false
		}
		result.Title = parsed.title
		result.Text = parsed.text
		result.Links = f.filterLinks(pageURL, parsed.links)
	} else {
		// Plain text and XML-ish types carry no hyperlinks worth
		// extracting; the raw body is the visible text.
		result.Text = strings.Join(strings.Fields(string(body)), " ")
	}

	f.logAttempt(pageURL, attempt, "ok", resp.StatusCode, start)
	return result, nil, false
}

// filterLinks applies the same-domain filter. Self-references are kept;
// the graph layer owns the no-self-loop invariant.
func (f *Fetcher) filterLinks(pageURL string, links []string) []string {
	if !f.sameDomainOnly {
		return links
	}

	sourceHost := urlnorm.MustHost(pageURL)
	filtered := make([]string, 0, len(links))
	for _, link := range links {
		if urlnorm.MustHost(link) == sourceHost {
			filtered = append(filtered, link)
		}
	}
	return filtered
}

// logAttempt emits the per-attempt observability record.
func (f *Fetcher) logAttempt(pageURL string, attempt int, outcome string, status int, start time.Time) {
	f.logger.Info("fetch attempt",
		"url", pageURL,
		"attempt", attempt,
		"outcome", outcome,
		"status", status,
		"latency", time.Since(start),
	)
}

// classifyTransportError maps a transport-level error to a fetch Error
// and reports whether it is transient.
func classifyTransportError(pageURL string, err error) (*Error, bool) {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return &Error{Kind: KindDNS, URL: pageURL, Err: err}, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: pageURL, Err: err}, true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: pageURL, Err: err}, true
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, URL: pageURL, Err: err}, false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// Resets and refusals are typically momentary.
		return &Error{Kind: KindServerUnavailable, URL: pageURL, Err: err}, true
	}

	return &Error{Kind: KindClient, URL: pageURL, Err: err}, false
}

// classifyStatus maps an HTTP status to a fetch Error, or nil for
// success. 429 and 5xx are transient; other 4xx fail fast.
func classifyStatus(pageURL string, status int) (*Error, bool) {
	switch {
	case status >= 200 && status < 300:
		return nil, false
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, URL: pageURL,
			Err: fmt.Errorf("status %d", status)}, false
	case status == http.StatusTooManyRequests || status >= 500:
		return &Error{Kind: KindServerUnavailable, URL: pageURL,
			Err: fmt.Errorf("status %d", status)}, true
	case status >= 400:
		return &Error{Kind: KindClient, URL: pageURL,
			Err: fmt.Errorf("status %d", status)}, false
	default:
		// 3xx reaching here means redirects were not followed; treat
		// as a client-side configuration problem.
		return &Error{Kind: KindClient, URL: pageURL,
			Err: fmt.Errorf("unexpected status %d", status)}, false
	}
}
