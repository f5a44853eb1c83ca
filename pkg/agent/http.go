package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// httpCaller drives a browser-agent service over HTTP. One POST per
// task; the service blocks until the agent finishes, so the request
// context carries the per-attempt timeout.
type httpCaller struct {
	log      logrus.FieldLogger
	opts     Options
	client   *http.Client
	endpoint string
}

var _ Caller = (*httpCaller)(nil)

func newHTTPCaller(log logrus.FieldLogger, opts Options) (Caller, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("agent endpoint is required")
	}

	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing agent endpoint: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("agent endpoint must be http or https, got %q", opts.Endpoint)
	}

	return &httpCaller{
		log:      log.WithField("component", "agent_caller"),
		opts:     opts,
		client:   &http.Client{},
		endpoint: u.String(),
	}, nil
}

type taskRequest struct {
	Task   string     `json:"task"`
	Config CallConfig `json:"config"`
}

type taskResponse struct {
	ID     string `json:"id,omitempty"`
	Output string `json:"output"`
	Done   *bool  `json:"done,omitempty"`
}

// Run posts the task to the agent service and blocks until it
// responds or ctx is done.
func (c *httpCaller) Run(ctx context.Context, task string, cfg CallConfig) (Artifact, error) {
	if cfg.Model == "" {
		cfg.Model = c.opts.DefaultModel
	}

	body, err := json.Marshal(taskRequest{Task: task, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("encoding task request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building task request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	c.log.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"model":    cfg.Model,
	}).Debug("Dispatching task to agent")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return nil, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, string(msg))
	}

	var tr taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding agent response: %w", err)
	}

	return &httpArtifact{caller: c, id: tr.ID, output: tr.Output, done: tr.Done}, nil
}

// Close releases idle connections to the agent service.
func (c *httpCaller) Close() error {
	c.client.CloseIdleConnections()

	return nil
}

// httpArtifact is the result of one agent call, scoped to the task it
// came from.
type httpArtifact struct {
	caller *httpCaller
	id     string
	output string
	done   *bool
}

var (
	_ Artifact      = (*httpArtifact)(nil)
	_ Screenshotter = (*httpArtifact)(nil)
)

func (a *httpArtifact) Output() string {
	return a.output
}

func (a *httpArtifact) Done() (done, ok bool) {
	if a.done == nil {
		return false, false
	}

	return *a.done, true
}

// Screenshot fetches the final browser state for this task from the
// agent service.
func (a *httpArtifact) Screenshot(ctx context.Context) ([]byte, error) {
	if a.id == "" {
		return nil, fmt.Errorf("agent provided no task id")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.caller.endpoint+"/v1/tasks/"+a.id+"/screenshot", nil)
	if err != nil {
		return nil, fmt.Errorf("building screenshot request: %w", err)
	}

	resp, err := a.caller.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching screenshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent returned status %d for screenshot", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading screenshot: %w", err)
	}

	return data, nil
}
