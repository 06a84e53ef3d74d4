package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"github.com/rohmanhakim/smoothstate/pkg/hashutil"
	"github.com/rohmanhakim/smoothstate/pkg/limiter"
	"github.com/rohmanhakim/smoothstate/pkg/retry"
	"github.com/rohmanhakim/smoothstate/pkg/timeutil"
)

/*
Responsibilities

- Perform HTTP GET requests for page markup
- Apply headers and timeouts
- Pace requests per host and back off on 429
- Classify responses

Fetch Semantics

- Only successful HTML responses are returned
- Non-HTML content is an error
- Redirects are followed by the http.Client
- All responses are recorded with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

type Fetcher interface {
	Fetch(ctx context.Context, fetchUrl url.URL) (FetchResult, failure.ClassifiedError)
}

type HtmlFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
	retryParam   retry.RetryParam
	rateLimiter  limiter.RateLimiter
}

// NewHtmlFetcher builds a fetcher. A nil httpClient uses a default client, a
// nil rateLimiter never delays.
func NewHtmlFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	userAgent string,
	retryParam retry.RetryParam,
	rateLimiter limiter.RateLimiter,
) *HtmlFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if rateLimiter == nil {
		rateLimiter = limiter.NoopLimiter{}
	}
	return &HtmlFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
		retryParam:   retryParam,
		rateLimiter:  rateLimiter,
	}
}

func (h *HtmlFetcher) Fetch(
	ctx context.Context,
	fetchUrl url.URL,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HtmlFetcher.Fetch"
	startTime := time.Now()

	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchUrl)
	}
	result, attempts, err := retry.Retry(ctx, h.retryParam, fetchTask)

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	var fingerprint string
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			statusCode = fetchErr.StatusCode
		}
	} else {
		statusCode = result.Code()
		contentType = result.ContentType()
		fingerprint = hashutil.Fingerprint(result.Body())
	}

	h.metadataSink.RecordFetch(
		fetchUrl.String(),
		statusCode,
		duration,
		contentType,
		attempts,
		fingerprint,
	)

	if err != nil {
		h.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			mapClassifiedErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
			},
		)
		return FetchResult{}, err
	}

	return result, nil
}

func (h *HtmlFetcher) performFetch(ctx context.Context, fetchUrl url.URL) (FetchResult, failure.ClassifiedError) {
	host := fetchUrl.Host
	if delay := h.rateLimiter.ResolveDelay(host); delay > 0 {
		if !timeutil.SleepContext(ctx, delay) {
			return FetchResult{}, &FetchError{
				Message:   ctx.Err().Error(),
				Retryable: false,
				Cause:     ErrCauseTimeout,
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}

	for key, value := range requestHeaders(h.userAgent) {
		req.Header.Set(key, value)
	}

	h.rateLimiter.MarkLastFetchAsNow(host)
	resp, err := h.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return FetchResult{}, &FetchError{
				Message:   fmt.Sprintf("request aborted: %v", err),
				Retryable: false,
				Cause:     ErrCauseTimeout,
			}
		}
		// Network/transport errors are retryable
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		h.rateLimiter.Backoff(host)
	} else {
		h.rateLimiter.ResetBackoff(host)
	}

	if statusErr := classifyStatus(resp.StatusCode); statusErr != nil {
		return FetchResult{}, statusErr
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContent(contentType) {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("non-HTML content type: %q", contentType),
			Retryable:  false,
			Cause:      ErrCauseContentTypeInvalid,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Retryable:  true,
			Cause:      ErrCauseReadResponseBodyError,
			StatusCode: resp.StatusCode,
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	finalUrl := fetchUrl
	if resp.Request != nil && resp.Request.URL != nil {
		finalUrl = *resp.Request.URL
	}

	return FetchResult{
		url:      fetchUrl,
		finalUrl: finalUrl,
		body:     body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}, nil
}

// classifyStatus returns nil for 2xx responses.
func classifyStatus(statusCode int) *FetchError {
	switch {
	case statusCode >= 500:
		return &FetchError{
			Message:    fmt.Sprintf("server error: %d", statusCode),
			Retryable:  true,
			Cause:      ErrCauseRequest5xx,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusTooManyRequests:
		return &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRequestTooMany,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return &FetchError{
			Message:    fmt.Sprintf("access denied (%d)", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestPageForbidden,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return &FetchError{
			Message:    fmt.Sprintf("page not found (%d)", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestNotFound,
			StatusCode: statusCode,
		}
	case statusCode >= 400:
		return &FetchError{
			Message:    fmt.Sprintf("client error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequest4xx,
			StatusCode: statusCode,
		}
	case statusCode >= 300:
		// http.Client follows redirects, so a 3xx here means it gave up
		return &FetchError{
			Message:    fmt.Sprintf("redirect error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRedirectLimitExceeded,
			StatusCode: statusCode,
		}
	}
	return nil
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":       userAgent,
		"Accept":           "text/html, */*; q=0.01",
		"Accept-Language":  "en-US,en;q=0.5",
		"X-Requested-With": "XMLHttpRequest",
	}
}
