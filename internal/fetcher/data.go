package fetcher

import (
	"net/url"
	"strings"
)

// HTTP boundary

type FetchResult struct {
	url      url.URL
	finalUrl url.URL
	body     []byte
	meta     ResponseMeta
}

// URL is the URL that was requested.
func (f FetchResult) URL() url.URL {
	return f.url
}

// FinalURL is the URL that produced the body, after redirects.
func (f FetchResult) FinalURL() url.URL {
	return f.finalUrl
}

func (f FetchResult) Body() []byte {
	return f.body
}

func (f FetchResult) Code() int {
	return f.meta.statusCode
}

func (f FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

func (f FetchResult) ContentType() string {
	for key, value := range f.meta.responseHeaders {
		if strings.EqualFold(key, "Content-Type") {
			return value
		}
	}
	return ""
}

type ResponseMeta struct {
	statusCode          int
	transferredSizeByte uint64
	responseHeaders     map[string]string
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	contentType string,
) FetchResult {
	return FetchResult{
		url:      url,
		finalUrl: url,
		body:     body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders: map[string]string{
				"Content-Type": contentType,
			},
		},
	}
}
