package status

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"server/internal/domain"
)

type stubTransport struct {
	responses map[string]stubResponse
	lastPath  string
	lastAuth  http.Header
}

type stubResponse struct {
	status int
	body   []byte
}

func newStubTransport() *stubTransport {
	return &stubTransport{responses: map[string]stubResponse{}}
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.lastPath = req.URL.Path
	s.lastAuth = req.Header.Clone()
	if stub, ok := s.responses[req.URL.Path]; ok {
		return &http.Response{
			StatusCode: stub.status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(bytes.NewReader(stub.body)),
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader(`{"error":{"code":404,"message":"operation not found"}}`)),
	}, nil
}

func (s *stubTransport) setJSON(path string, statusCode int, payload any) {
	body, _ := json.Marshal(payload)
	s.responses[path] = stubResponse{status: statusCode, body: body}
}

func newVeoTestClient(t *testing.T, transport http.RoundTripper) *VeoClient {
	t.Helper()
	client, err := NewVeoClient(VeoOptions{
		APIKey:     "test-key",
		BaseURL:    "https://veo.test/v1beta",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new veo client: %v", err)
	}
	return client
}

func TestVeoFetchStatusRunning(t *testing.T) {
	transport := newStubTransport()
	transport.setJSON("/v1beta/models/veo-2.0/operations/op-1", http.StatusOK, map[string]any{
		"name": "models/veo-2.0/operations/op-1",
		"done": false,
	})
	client := newVeoTestClient(t, transport)

	st, err := client.FetchStatus(context.Background(), "models/veo-2.0/operations/op-1")
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	if st.State != StateRunning {
		t.Fatalf("state = %q, want running", st.State)
	}
	if got := transport.lastAuth.Get("x-goog-api-key"); got != "test-key" {
		t.Fatalf("api key header = %q", got)
	}
}

func TestVeoFetchStatusSucceeded(t *testing.T) {
	transport := newStubTransport()
	transport.setJSON("/v1beta/models/veo-2.0/operations/op-2", http.StatusOK, map[string]any{
		"done": true,
		"response": map[string]any{
			"generateVideoResponse": map[string]any{
				"generatedSamples": []any{
					map[string]any{"video": map[string]any{"uri": "https://files.test/op-2.mp4"}},
				},
			},
		},
	})
	client := newVeoTestClient(t, transport)

	st, err := client.FetchStatus(context.Background(), "models/veo-2.0/operations/op-2")
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	if st.State != StateSucceeded || st.ResultURL != "https://files.test/op-2.mp4" {
		t.Fatalf("status = %+v", st)
	}
}

func TestVeoFetchStatusFailedOperation(t *testing.T) {
	transport := newStubTransport()
	transport.setJSON("/v1beta/models/veo-2.0/operations/op-3", http.StatusOK, map[string]any{
		"done": true,
		"error": map[string]any{
			"code":    3,
			"message": "prompt was blocked",
		},
	})
	client := newVeoTestClient(t, transport)

	st, err := client.FetchStatus(context.Background(), "models/veo-2.0/operations/op-3")
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	if st.State != StateFailed || st.Message != "prompt was blocked" {
		t.Fatalf("status = %+v", st)
	}
}

func TestVeoFetchStatusMalformedSuccess(t *testing.T) {
	transport := newStubTransport()
	transport.setJSON("/v1beta/models/veo-2.0/operations/op-4", http.StatusOK, map[string]any{
		"done": true,
	})
	client := newVeoTestClient(t, transport)

	st, err := client.FetchStatus(context.Background(), "models/veo-2.0/operations/op-4")
	if err != nil {
		t.Fatalf("fetch status: %v", err)
	}
	// Normalization stays mechanical; the empty URL is the caller's signal.
	if st.State != StateSucceeded || st.ResultURL != "" {
		t.Fatalf("status = %+v", st)
	}
}

func TestVeoFetchStatusServerErrorIsTransient(t *testing.T) {
	transport := newStubTransport()
	transport.setJSON("/v1beta/models/veo-2.0/operations/op-5", http.StatusServiceUnavailable, map[string]any{
		"error": map[string]any{"code": 503, "message": "overloaded"},
	})
	client := newVeoTestClient(t, transport)

	_, err := client.FetchStatus(context.Background(), "models/veo-2.0/operations/op-5")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestVeoFetchStatusUnknownOperationIsPermanent(t *testing.T) {
	transport := newStubTransport()
	client := newVeoTestClient(t, transport)

	_, err := client.FetchStatus(context.Background(), "models/veo-2.0/operations/gone")
	if !errors.Is(err, domain.ErrUnknownExternalJob) {
		t.Fatalf("err = %v, want ErrUnknownExternalJob", err)
	}
}

func TestVeoFetchStatusRequiresCredentials(t *testing.T) {
	client, err := NewVeoClient(VeoOptions{})
	if err != nil {
		t.Fatalf("new veo client: %v", err)
	}
	if _, err := client.FetchStatus(context.Background(), "models/veo-2.0/operations/op"); !errors.Is(err, ErrMissingVeoAPIKey) {
		t.Fatalf("err = %v, want ErrMissingVeoAPIKey", err)
	}
}
