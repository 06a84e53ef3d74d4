package cmd_test

import (
	"net/url"
	"testing"
)

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse %s: %v", raw, err)
	}
	return *u
}
