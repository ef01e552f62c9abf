package logger

import (
	"errors"
	"testing"
)

func TestSanitizer_Sanitize(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "password",
			input:    "login with password=secret123",
			expected: "login with password=***",
		},
		{
			name:     "client secret in token request",
			input:    "POST grant_type=client_credentials&client_secret=s3cr3t&scope=openid",
			expected: "POST grant_type=client_credentials&client_secret=***&scope=openid",
		},
		{
			name:     "access token",
			input:    "got access_token=abc123xyz",
			expected: "got access_token=***",
		},
		{
			name:     "bearer token",
			input:    "Authorization: Bearer eyJhbGc...",
			expected: "Authorization: bearer ***",
		},
		{
			name:     "cookie header",
			input:    "Cookie: JSESSIONID=ABC; other=1",
			expected: "Cookie: ***",
		},
		{
			name:     "session id",
			input:    "set JSESSIONID=1234ABCD; Path=/",
			expected: "set JSESSIONID=***; Path=/",
		},
		{
			name:     "unix home path",
			input:    "storage root /home/john/data",
			expected: "storage root /home/***/data",
		},
		{
			name:     "email partial mask",
			input:    "user email: john.doe@example.com",
			expected: "user email: joh***@example.com",
		},
		{
			name:     "collection path untouched",
			input:    "listing /Collection 1/dir",
			expected: "listing /Collection 1/dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.Sanitize(tt.input)
			if result != tt.expected {
				t.Errorf("Sanitize() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestSanitizer_SanitizeArgs(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name     string
		input    []any
		validate func([]any) bool
	}{
		{
			name:  "client secret key-value",
			input: []any{"client_id", "mercury", "client_secret", "verysecretvalue"},
			validate: func(result []any) bool {
				return len(result) == 4 && result[1] == "mercury" && result[3] == "v***e"
			},
		},
		{
			name:  "error under auth key",
			input: []any{"auth", errors.New("bad token")},
			validate: func(result []any) bool {
				return result[1] == "b***n"
			},
		},
		{
			name:  "innocent key keeps value",
			input: []any{"path", "/coll/token=abc"},
			validate: func(result []any) bool {
				return result[1] == "/coll/token=abc"
			},
		},
		{
			name:  "non string values untouched",
			input: []any{"file", "test.txt", "size", 1024},
			validate: func(result []any) bool {
				return len(result) == 4 && result[3] == 1024
			},
		},
		{
			name:  "odd length",
			input: []any{"token"},
			validate: func(result []any) bool {
				return len(result) == 1 && result[0] == "token"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.SanitizeArgs(tt.input)
			if !tt.validate(result) {
				t.Errorf("SanitizeArgs() validation failed for %v", result)
			}
		})
	}
}

func TestSanitizer_AddRule(t *testing.T) {
	s := NewSanitizer()

	if err := s.AddRule(`orcid=\d{4}-\d{4}-\d{4}-\d{4}`, "orcid=***"); err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}

	result := s.Sanitize("user orcid=0000-0002-1825-0097 registered")
	if result != "user orcid=*** registered" {
		t.Errorf("got %q", result)
	}

	if err := s.AddRule(`(`, ""); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ab", "***"},
		{"abc", "a***"},
		{"abcdefgh", "a***"},
		{"abcdefghi", "a***i"},
		{"verylongpassword", "v***d"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := maskValue(tt.input); got != tt.expected {
				t.Errorf("maskValue(%s) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"password", true},
		{"client_secret", true},
		{"Authorization", true},
		{"Cookie", true},
		{"token", true},
		{"path", false},
		{"linkedEntityType", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := isSensitiveKey(tt.input); got != tt.expected {
				t.Errorf("isSensitiveKey(%s) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
