package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newParser(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return NewRequestBodyParser(req)
}

func TestRequestBodyParser_Get(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		key     string
		want    string
		wantHas bool
		isJSON  bool
	}{
		{"json string", `{"title":"  Rent "}`, "title", "Rent", true, true},
		{"json number keeps digits", `{"amount":1200.10}`, "amount", "1200.10", true, true},
		{"json large number", `{"amount":12345678901234567.89}`, "amount", "12345678901234567.89", true, true},
		{"json null is absent", `{"title":null}`, "title", "", false, true},
		{"json missing key", `{"title":"x"}`, "other", "", false, true},
		{"json control chars stripped", "{\"title\":\"a\\u0000b\"}", "title", "ab", true, true},
		{"form value", "title=Rent&amount=12%2C50", "amount", "12,50", true, false},
		{"form missing key", "title=Rent", "amount", "", false, false},
		{"empty body", "", "title", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.body)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if got := p.Has(tt.key); got != tt.wantHas {
				t.Errorf("Has(%q) = %v, want %v", tt.key, got, tt.wantHas)
			}
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.isJSON)
			}
		})
	}
}

func TestRequestBodyParser_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated json", `{"title":`},
		{"json array", `[1,2]`},
		{"bad form escape", "title=%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.body)
			if err := p.Parse(); err != errMalformedBody {
				t.Errorf("Parse() error = %v, want errMalformedBody", err)
			}
		})
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	p := newParser(t, `{"x":"`+strings.Repeat("a", maxBodyBytes)+`"}`)
	if err := p.Parse(); err != errBodyTooLarge {
		t.Errorf("Parse() error = %v, want errBodyTooLarge", err)
	}
}

func TestRequestBodyParser_AmountAndDate(t *testing.T) {
	p := newParser(t, `{"amount":"12,34","date":"2024-02-29T10:00:00Z","bad":"1e3"}`)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	amount, err := p.Amount("amount")
	if err != nil || amount.String() != "12.34" {
		t.Errorf("Amount() = %v, %v; want 12.34", amount, err)
	}
	if _, err := p.Amount("bad"); err == nil {
		t.Error("Amount(bad) should fail")
	}
	date, err := p.Date("date")
	if err != nil || date.String() != "2024-02-29" {
		t.Errorf("Date() = %v, %v; want 2024-02-29", date, err)
	}
}

func TestRequestBodyParser_RequireFields(t *testing.T) {
	p := newParser(t, `{"title":"x","amount":"  "}`)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := p.RequireFields("title"); err != nil {
		t.Errorf("RequireFields(title) = %v", err)
	}
	if err := p.RequireFields("title", "amount"); err != errMissingFields {
		t.Errorf("blank amount: got %v, want errMissingFields", err)
	}
	if err := p.RequireFields("category"); err != errMissingFields {
		t.Errorf("missing category: got %v, want errMissingFields", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"tab\tkept", "tab\tkept"},
		{"bell\x07gone", "bellgone"},
		{"line\nbreak", "line\nbreak"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
