package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrMissingVeoAPIKey indicates the client was configured without credentials.
var ErrMissingVeoAPIKey = errors.New("veo: api key is required")

// VeoOptions configures the Veo long-running-operation status client.
type VeoOptions struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// VeoClient polls the Gemini API's long-running operation endpoint for Veo
// video generation jobs. The external job id is the operation name issued at
// submission time (e.g. "models/veo-2.0/operations/abc123").
type VeoClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

type veoErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewVeoClient constructs a client with sane defaults and injected dependencies.
func NewVeoClient(opts VeoOptions) (*VeoClient, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &VeoClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *VeoClient) HasCredentials() bool {
	return c.apiKey != ""
}

// FetchStatus polls one operation and normalizes the answer. done=false maps
// to running; done with an error block maps to failed; done with a sample URI
// maps to succeeded. A done operation with neither is reported as succeeded
// with an empty ResultURL and left to the caller to judge.
func (c *VeoClient) FetchStatus(ctx context.Context, externalJobID string) (*Status, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingVeoAPIKey
	}
	operation := strings.TrimSpace(strings.TrimPrefix(externalJobID, "/"))
	if operation == "" {
		return nil, fmt.Errorf("%w: empty operation name", domain.ErrUnknownExternalJob)
	}

	endpoint := c.baseURL + "/" + operation
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("veo: build request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: veo: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: veo: read response: %v", domain.ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, raw)
	}

	var op veoOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("%w: veo: decode response: %v", domain.ErrProviderUnavailable, err)
	}

	st := normalizeVeoOperation(op)
	c.logger.Debug().
		Str("operation", operation).
		Str("state", string(st.State)).
		Msg("veo: fetched operation status")
	return st, nil
}

func (c *VeoClient) statusError(code int, raw []byte) error {
	message := strings.TrimSpace(string(raw))
	var detail veoErrorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
		message = detail.Error.Message
	}
	switch {
	case code == http.StatusNotFound, code == http.StatusBadRequest:
		return fmt.Errorf("%w: veo: %s", domain.ErrUnknownExternalJob, message)
	default:
		return fmt.Errorf("%w: veo: status %d: %s", domain.ErrProviderUnavailable, code, message)
	}
}

func normalizeVeoOperation(op veoOperation) *Status {
	if !op.Done {
		return &Status{State: StateRunning}
	}
	if op.Error != nil {
		message := op.Error.Message
		if message == "" {
			message = fmt.Sprintf("operation failed with code %d", op.Error.Code)
		}
		return &Status{State: StateFailed, Message: message}
	}
	var uri string
	for _, sample := range op.Response.GenerateVideoResponse.GeneratedSamples {
		if u := strings.TrimSpace(sample.Video.URI); u != "" {
			uri = u
			break
		}
	}
	return &Status{State: StateSucceeded, ResultURL: uri}
}

var _ Client = (*VeoClient)(nil)
