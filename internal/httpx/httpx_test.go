package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type echoResponse struct {
	Greeting string `json:"greeting"`
}

// TestDoPostSync_Success verifies the happy path: JSON body out, parsed
// struct back, Bearer auth set.
func TestDoPostSync_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if auth := request.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		if contentType := request.Header.Get("Content-Type"); contentType != "application/json" {
			t.Errorf("unexpected Content-Type %q", contentType)
		}

		var body map[string]string
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["name"] != "world" {
			t.Errorf("unexpected request body %v", body)
		}

		json.NewEncoder(writer).Encode(echoResponse{Greeting: "hello world"})
	}))
	defer server.Close()

	_, parsed, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "secret",
		map[string]string{"name": "world"})
	if err != nil {
		t.Fatalf("DoPostSync failed: %v", err)
	}
	if parsed == nil || parsed.Greeting != "hello world" {
		t.Errorf("unexpected parsed response %+v", parsed)
	}
}

// TestDoPostSync_HeaderOptionOverridesAuth verifies that a HeaderOption can
// replace the default Bearer Authorization (Api-Key style auth).
func TestDoPostSync_HeaderOptionOverridesAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if apiKey := request.Header.Get("Api-Key"); apiKey != "pk-123" {
			t.Errorf("unexpected Api-Key header %q", apiKey)
		}
		writer.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", nil,
		HeaderOption{Key: "Api-Key", Value: "pk-123"})
	if err != nil {
		t.Fatalf("DoPostSync failed: %v", err)
	}
}

// TestDoPostSync_Non2xxIncludesBody verifies the error carries the status
// and the response body for debugging.
func TestDoPostSync_Non2xxIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		http.Error(writer, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", nil)
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("error should carry status and body, got: %v", err)
	}
}

// TestDoPostSync_InvalidJSONIncludesPreview verifies parse failures include
// a truncated response preview.
func TestDoPostSync_InvalidJSONIncludesPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Write([]byte("<html>definitely not json</html>"))
	}))
	defer server.Close()

	_, _, err := DoPostSync[echoResponse](context.Background(), server.Client(), server.URL, "", nil)
	if err == nil {
		t.Fatal("expected error for invalid JSON response")
	}
	if !strings.Contains(err.Error(), "definitely not json") {
		t.Errorf("error should include a response preview, got: %v", err)
	}
}

// TestDoPostSync_ContextCancellation verifies cancellation propagates.
func TestDoPostSync_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := DoPostSync[echoResponse](ctx, http.DefaultClient, "http://127.0.0.1:1", "", nil)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

// TestSSEScanner covers framing: data lines, multi-line joins, comments,
// and the [DONE] sentinel.
func TestSSEScanner(t *testing.T) {
	input := ": comment line\n" +
		"data: first\n\n" +
		"data: part one\ndata: part two\n\n" +
		"event: named\ndata: with event field\n\n" +
		"data: [DONE]\n\n"

	scanner := NewSSEScanner(io.NopCloser(strings.NewReader(input)))

	payloads := []string{}
	for {
		payload, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected scanner error: %v", err)
		}
		payloads = append(payloads, payload)
	}

	want := []string{"first", "part one\npart two", "with event field"}
	if len(payloads) != len(want) {
		t.Fatalf("expected %d payloads, got %d: %v", len(want), len(payloads), payloads)
	}
	for payloadIndex, wantPayload := range want {
		if payloads[payloadIndex] != wantPayload {
			t.Errorf("payload %d: expected %q, got %q", payloadIndex, wantPayload, payloads[payloadIndex])
		}
	}
}

// TestSSEScanner_TrailingDataWithoutBlankLine verifies a stream that ends
// mid-frame still delivers the buffered data lines.
func TestSSEScanner_TrailingDataWithoutBlankLine(t *testing.T) {
	scanner := NewSSEScanner(io.NopCloser(strings.NewReader("data: trailing")))

	payload, err := scanner.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != "trailing" {
		t.Errorf("expected trailing payload, got %q", payload)
	}

	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("expected EOF after trailing payload, got %v", err)
	}
}

// TestTruncateString covers the boundary cases of log-safe truncation.
func TestTruncateString(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "shorter than max", input: "short", maxLen: 10, want: "short"},
		{name: "exactly max", input: "1234567890", maxLen: 10, want: "1234567890"},
		{name: "longer than max", input: "12345678901", maxLen: 10, want: "1234567890..."},
		{name: "zero max uses default", input: strings.Repeat("x", DefaultMaxStringLength+1),
			maxLen: 0, want: strings.Repeat("x", DefaultMaxStringLength) + "..."},
		{name: "empty string", input: "", maxLen: 5, want: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(subTest *testing.T) {
			if got := TruncateString(testCase.input, testCase.maxLen); got != testCase.want {
				subTest.Errorf("TruncateString(%q, %d) = %q, want %q",
					testCase.input, testCase.maxLen, got, testCase.want)
			}
		})
	}
}
