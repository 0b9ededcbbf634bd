package httpx

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

type testRequest struct {
	URL       string `json:"url"`
	Plan      string `json:"plan"`
	MaxClicks int    `json:"max_clicks"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantErr     bool
		errContains string
		validate    func(*testing.T, testRequest)
	}{
		{
			name:    "valid JSON",
			body:    `{"url":"https://example.com/page","plan":"starter","max_clicks":100}`,
			wantErr: false,
			validate: func(t *testing.T, req testRequest) {
				if req.URL != "https://example.com/page" {
					t.Errorf("expected url 'https://example.com/page', got %q", req.URL)
				}
				if req.Plan != "starter" {
					t.Errorf("expected plan 'starter', got %q", req.Plan)
				}
				if req.MaxClicks != 100 {
					t.Errorf("expected max_clicks 100, got %d", req.MaxClicks)
				}
			},
		},
		{
			name:        "empty body",
			body:        "",
			wantErr:     true,
			errContains: "request body is empty",
		},
		{
			name:        "malformed JSON - missing quote",
			body:        `{"url":"https://example.com,"plan":"starter"}`,
			wantErr:     true,
			errContains: "malformed JSON",
		},
		{
			name:        "unknown field",
			body:        `{"url":"https://example.com","owner":"someone-else"}`,
			wantErr:     true,
			errContains: "unknown",
		},
		{
			name:        "invalid type for field",
			body:        `{"url":"https://example.com","max_clicks":"hundred"}`,
			wantErr:     true,
			errContains: "invalid value for field",
		},
		{
			name:        "multiple JSON objects",
			body:        `{"url":"https://example.com"}{"url":"https://other.example"}`,
			wantErr:     true,
			errContains: "multiple JSON objects",
		},
		{
			name:        "body too large",
			body:        `{"url":"` + strings.Repeat("x", MaxRequestBodySize+1) + `"}`,
			wantErr:     true,
			errContains: "request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			result, err := DecodeJSON[testRequest](req)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error to contain %q, got %q", tt.errContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.validate != nil {
				tt.validate(t, result)
			}
		})
	}
}

func TestDecodeJSON_ZeroValueOnError(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", strings.NewReader("invalid json"))

	result, err := DecodeJSON[testRequest](req)

	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var zero testRequest
	if result != zero {
		t.Errorf("expected zero value on error, got %+v", result)
	}
}

func TestDecodeJSON_ClosesBody(t *testing.T) {
	body := &testReadCloser{
		Reader: strings.NewReader(`{"url":"https://example.com","plan":"starter","max_clicks":1}`),
	}

	req := httptest.NewRequest("POST", "/test", body)

	_, err := DecodeJSON[testRequest](req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !body.closed {
		t.Error("expected body to be closed")
	}
}

// testReadCloser helps verify that body is closed
type testReadCloser struct {
	io.Reader
	closed bool
}

func (t *testReadCloser) Close() error {
	t.closed = true
	return nil
}
