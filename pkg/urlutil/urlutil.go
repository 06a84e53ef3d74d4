package urlutil

import (
	"net/url"
	"strings"
)

// defaultPorts maps a scheme to the port browsers elide from the host.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// CacheKey returns the normalized form of an absolute URL used to index
// cached pages.
//
// Rules:
//   - Scheme and host are lowercased
//   - Default ports are omitted (:80 for http, :443 for https)
//   - The fragment is removed
//   - Path and query are kept verbatim
//
// CacheKey is pure and idempotent: CacheKey(Parse(CacheKey(u))) == CacheKey(u).
func CacheKey(sourceUrl url.URL) string {
	canonical := Canonicalize(sourceUrl)
	return canonical.String()
}

// Canonicalize applies the CacheKey rules and returns the resulting URL.
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = strings.ToLower(canonical.Scheme)
	canonical.Host = normalizeHost(canonical.Scheme, canonical.Host)

	canonical.Fragment = ""
	canonical.RawFragment = ""

	return canonical
}

// Resolve resolves href against base the way an anchor's href property does.
func Resolve(base url.URL, href string) (url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return url.URL{}, err
	}
	return *base.ResolveReference(ref), nil
}

// IsExternal reports whether target lives on a different origin than
// current. Relative targets (no scheme, no host) are never external.
// Hosts are compared after removing the default port of current's scheme.
func IsExternal(target url.URL, current url.URL) bool {
	if target.Scheme != "" && !strings.EqualFold(target.Scheme, current.Scheme) {
		return true
	}
	if target.Host != "" {
		scheme := strings.ToLower(current.Scheme)
		if normalizeHost(scheme, target.Host) != normalizeHost(scheme, current.Host) {
			return true
		}
	}
	return false
}

// IsHash reports whether target is a reference to a fragment of the
// document at current: same path and query, non-empty fragment.
func IsHash(target url.URL, current url.URL) bool {
	if target.Fragment == "" && target.RawFragment == "" {
		return false
	}
	return samePath(target.Path, current.Path) && target.RawQuery == current.RawQuery
}

// SameDocument reports whether a and b address the same document, ignoring
// fragments.
func SameDocument(a url.URL, b url.URL) bool {
	return CacheKey(a) == CacheKey(b)
}

func normalizeHost(scheme string, host string) string {
	host = strings.ToLower(host)
	if port, ok := defaultPorts[scheme]; ok {
		host = strings.TrimSuffix(host, ":"+port)
	}
	return host
}

func samePath(a string, b string) bool {
	if a == "" {
		a = "/"
	}
	if b == "" {
		b = "/"
	}
	return a == b
}
