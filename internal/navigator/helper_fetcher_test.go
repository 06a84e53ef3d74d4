package navigator_test

import (
	"context"
	"net/url"

	"github.com/rohmanhakim/smoothstate/internal/fetcher"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"github.com/stretchr/testify/mock"
)

// pageFetcherMock is a testify mock for navigator.PageFetcher
type pageFetcherMock struct {
	mock.Mock
}

func (m *pageFetcherMock) Fetch(ctx context.Context, fetchUrl url.URL) (fetcher.FetchResult, failure.ClassifiedError) {
	args := m.Called(ctx, fetchUrl)
	result := args.Get(0).(fetcher.FetchResult)
	if err, ok := args.Get(1).(failure.ClassifiedError); ok {
		return result, err
	}
	return result, nil
}

func pathIs(path string) interface{} {
	return mock.MatchedBy(func(u url.URL) bool {
		return u.Path == path
	})
}

func htmlResult(path string, body string) fetcher.FetchResult {
	return fetcher.NewFetchResultForTest(url.URL{Scheme: "https", Host: "example.com", Path: path}, []byte(body), 200, "text/html")
}

// onPage serves body for path immediately.
func (m *pageFetcherMock) onPage(path string, body string) {
	m.On("Fetch", mock.Anything, pathIs(path)).Return(htmlResult(path, body), nil)
}

// onBlockedPage serves body for path once gate is closed, or fails when the
// request context ends first.
func (m *pageFetcherMock) onBlockedPage(path string, body string, gate <-chan struct{}) {
	m.On("Fetch", mock.Anything, pathIs(path)).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			select {
			case <-gate:
			case <-ctx.Done():
			}
		}).
		Return(htmlResult(path, body), nil)
}

// onFailure fails every request for path.
func (m *pageFetcherMock) onFailure(path string) {
	m.On("Fetch", mock.Anything, pathIs(path)).Return(fetcher.FetchResult{}, &fetcher.FetchError{
		Message:    "server error: 500",
		Retryable:  true,
		Cause:      fetcher.ErrCauseRequest5xx,
		StatusCode: 500,
	})
}
