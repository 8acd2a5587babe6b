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

// ErrMissingRunwayAPIKey indicates the client was configured without credentials.
var ErrMissingRunwayAPIKey = errors.New("runway: api key is required")

// RunwayOptions configures the Runway task status client.
type RunwayOptions struct {
	APIKey         string
	BaseURL        string
	APIVersion     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// RunwayClient queries the Runway tasks API. Unlike Veo it can enumerate
// recent tasks, so it also implements BulkClient.
type RunwayClient struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *infra.Logger
}

type runwayTask struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Output      []string `json:"output"`
	Failure     string   `json:"failure"`
	FailureCode string   `json:"failureCode"`
}

type runwayTaskList struct {
	Tasks []runwayTask `json:"tasks"`
}

type runwayErrorResponse struct {
	Error string `json:"error"`
}

// NewRunwayClient constructs a client with sane defaults and injected dependencies.
func NewRunwayClient(opts RunwayOptions) (*RunwayClient, error) {
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
		baseURL = "https://api.dev.runwayml.com"
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "2024-11-06"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &RunwayClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *RunwayClient) HasCredentials() bool {
	return c.apiKey != ""
}

// FetchStatus queries one task and normalizes its status.
func (c *RunwayClient) FetchStatus(ctx context.Context, externalJobID string) (*Status, error) {
	taskID := strings.TrimSpace(externalJobID)
	if taskID == "" {
		return nil, fmt.Errorf("%w: empty task id", domain.ErrUnknownExternalJob)
	}
	var task runwayTask
	if err := c.getJSON(ctx, "/v1/tasks/"+taskID, &task); err != nil {
		return nil, err
	}
	st := normalizeRunwayTask(task)
	c.logger.Debug().
		Str("task_id", taskID).
		Str("state", string(st.State)).
		Msg("runway: fetched task status")
	return st, nil
}

// ListJobs enumerates recent tasks in one call.
func (c *RunwayClient) ListJobs(ctx context.Context) ([]JobStatus, error) {
	var list runwayTaskList
	if err := c.getJSON(ctx, "/v1/tasks", &list); err != nil {
		return nil, err
	}
	jobs := make([]JobStatus, 0, len(list.Tasks))
	for _, task := range list.Tasks {
		jobs = append(jobs, JobStatus{
			ExternalJobID: task.ID,
			Status:        *normalizeRunwayTask(task),
		})
	}
	return jobs, nil
}

func (c *RunwayClient) getJSON(ctx context.Context, path string, out any) error {
	if !c.HasCredentials() {
		return ErrMissingRunwayAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("runway: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: runway: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: runway: read response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(raw))
		var detail runwayErrorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error != "" {
			message = detail.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: runway: %s", domain.ErrUnknownExternalJob, message)
		}
		return fmt.Errorf("%w: runway: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, message)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: runway: decode response: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}

func normalizeRunwayTask(task runwayTask) *Status {
	switch strings.ToUpper(strings.TrimSpace(task.Status)) {
	case "PENDING", "THROTTLED":
		return &Status{State: StatePending}
	case "RUNNING":
		return &Status{State: StateRunning}
	case "SUCCEEDED":
		var output string
		if len(task.Output) > 0 {
			output = strings.TrimSpace(task.Output[0])
		}
		return &Status{State: StateSucceeded, ResultURL: output}
	case "CANCELLED":
		return &Status{State: StateFailed, Message: "task cancelled at provider"}
	case "FAILED":
		message := task.Failure
		if message == "" && task.FailureCode != "" {
			message = "task failed with code " + task.FailureCode
		}
		return &Status{State: StateFailed, Message: message}
	default:
		// Unrecognized vocabulary is treated as still queued rather than
		// failed so a provider-side addition cannot terminalize jobs.
		return &Status{State: StatePending}
	}
}

var (
	_ Client     = (*RunwayClient)(nil)
	_ BulkClient = (*RunwayClient)(nil)
)
