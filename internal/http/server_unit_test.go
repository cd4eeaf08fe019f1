package http

import (
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"abc":          "",
		"Basic abc":    "",
		"":             "",
	}
	for header, expect := range cases {
		if got := bearerToken(header); got != expect {
			t.Fatalf("bearerToken(%q) = %q, expected %q", header, got, expect)
		}
	}
}

func TestParseLimit(t *testing.T) {
	cases := map[string]int32{
		"":     50,
		"10":   10,
		"500":  500,
		"501":  50,
		"0":    50,
		"-3":   50,
		"abc":  50,
		"12.5": 50,
	}
	for raw, expect := range cases {
		req := httptest.NewRequest("GET", "/users", nil)
		q := req.URL.Query()
		if raw != "" {
			q.Set("limit", raw)
		}
		req.URL.RawQuery = q.Encode()
		if got := parseLimit(req, 50); got != expect {
			t.Fatalf("parseLimit(%q) = %d, expected %d", raw, got, expect)
		}
	}
}

func TestValidDate(t *testing.T) {
	valid := []string{"2026-03-15", "2026-12-31", "2024-02-29"}
	for _, date := range valid {
		if !validDate(date) {
			t.Fatalf("expected %s to be valid", date)
		}
	}
	invalid := []string{"", "2026-13-01", "2026-02-30", "15-03-2026", "2026/03/15", "hoy"}
	for _, date := range invalid {
		if validDate(date) {
			t.Fatalf("expected %s to be invalid", date)
		}
	}
}

func TestStrPtrDeref(t *testing.T) {
	if strPtr("") != nil {
		t.Fatalf("expected nil for empty string")
	}
	value := strPtr("08:05")
	if value == nil || *value != "08:05" {
		t.Fatalf("expected pointer to 08:05")
	}
	if deref(nil) != "" {
		t.Fatalf("expected empty string for nil")
	}
	if deref(value) != "08:05" {
		t.Fatalf("expected 08:05")
	}
}
