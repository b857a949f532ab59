// Package cloud uploads finished eval reports to the flaky.dev backend. An
// upload is strictly best-effort: any failure is captured in the returned
// UploadResult and never interrupts the run that produced the report.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/flaky-dev/flaky/config"
	"github.com/flaky-dev/flaky/gitinfo"
	"github.com/flaky-dev/flaky/reporting"
)

// APIKeyEnv is the environment variable holding the cloud API key. The key
// never lives in flaky.yaml.
const APIKeyEnv = "FLAKY_API_KEY"

const uploadTimeout = 30 * time.Second

// Config is the resolved upload target.
type Config struct {
	Project string
	URL     string
	APIKey  string
}

// ConfigFromFile builds the upload configuration from the file-level config
// and the environment. It errors when the file configures a cloud target but
// the API key is absent, so a misconfigured CI job fails loudly instead of
// silently skipping uploads.
func ConfigFromFile(fileCfg *config.Config) (*Config, error) {
	if !fileCfg.CloudConfigured() {
		return nil, nil
	}
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("cloud upload configured for project %q but %s is not set", fileCfg.Cloud.Project, APIKeyEnv)
	}
	return &Config{
		Project: fileCfg.Cloud.Project,
		URL:     strings.TrimRight(fileCfg.Cloud.URL, "/"),
		APIKey:  key,
	}, nil
}

// UploadResult describes one upload attempt. Success is the only field a
// caller needs to branch on; Error carries the reason when it is false.
type UploadResult struct {
	Success bool
	RunID   string
	URL     string
	Error   string
}

// Client talks to the cloud backend.
type Client struct {
	cfg  *Config
	http *retryablehttp.Client
	log  *logrus.Logger
}

// NewClient creates an upload client. Transient HTTP failures are retried
// with backoff before the upload is declared failed.
func NewClient(cfg *Config, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = uploadTimeout
	rc.Logger = nil
	return &Client{cfg: cfg, http: rc, log: log}
}

type runPayload struct {
	RunID            string          `json:"run_id"`
	Project          string          `json:"project"`
	Branch           string          `json:"branch"`
	BranchType       string          `json:"branch_type"`
	CommitSHA        string          `json:"commit_sha"`
	CaseName         string          `json:"case_name"`
	NumGenerations   int             `json:"num_generations"`
	TotalTests       int             `json:"total_tests"`
	TotalPassed      int             `json:"total_passed"`
	TotalFailed      int             `json:"total_failed"`
	SuccessRate      float64         `json:"success_rate"`
	PerTestBreakdown json.RawMessage `json:"per_test_breakdown"`
	RawReport        json.RawMessage `json:"raw_report"`
}

// UploadReport sends one case report to the backend. It never returns an
// error; failures come back inside the UploadResult.
func (c *Client) UploadReport(ctx context.Context, report *reporting.EvalReport, git gitinfo.Context) UploadResult {
	raw, err := reporting.ReportToJSON(report)
	if err != nil {
		return c.failure(report, fmt.Sprintf("encoding report: %v", err))
	}
	breakdown, err := json.Marshal(report.PerTestBreakdown())
	if err != nil {
		return c.failure(report, fmt.Sprintf("encoding breakdown: %v", err))
	}

	payload := runPayload{
		RunID:            report.RunID,
		Project:          c.cfg.Project,
		Branch:           git.Branch,
		BranchType:       git.BranchType(),
		CommitSHA:        git.CommitSHA,
		CaseName:         report.CaseName,
		NumGenerations:   report.NumGenerations,
		TotalTests:       report.TotalTests(),
		TotalPassed:      report.TotalPassed(),
		TotalFailed:      report.TotalFailed(),
		SuccessRate:      report.SuccessRate(),
		PerTestBreakdown: breakdown,
		RawReport:        raw,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return c.failure(report, fmt.Sprintf("encoding payload: %v", err))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/rest/v1/runs", bytes.NewReader(body))
	if err != nil {
		return c.failure(report, fmt.Sprintf("building request: %v", err))
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.failure(report, fmt.Sprintf("upload failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return c.failure(report, fmt.Sprintf("upload rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	result := UploadResult{
		Success: true,
		RunID:   report.RunID,
		URL:     RunURL(c.cfg.Project, git, report.RunID),
	}
	c.log.WithFields(logrus.Fields{"case": report.CaseName, "url": result.URL}).Debug("Report uploaded")
	return result
}

// RunURL is the human-facing dashboard location for an uploaded run.
func RunURL(project string, git gitinfo.Context, runID string) string {
	return fmt.Sprintf("https://flaky.dev/%s/%s/%s/run_%s", project, git.BranchType(), git.Branch, runID)
}

func (c *Client) failure(report *reporting.EvalReport, msg string) UploadResult {
	c.log.WithField("case", report.CaseName).Warn("Cloud upload failed: " + msg)
	return UploadResult{RunID: report.RunID, Error: msg}
}
