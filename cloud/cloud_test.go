package cloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaky-dev/flaky/config"
	"github.com/flaky-dev/flaky/gitinfo"
	"github.com/flaky-dev/flaky/reporting"
	"github.com/flaky-dev/flaky/types"
)

func sampleReport() *reporting.EvalReport {
	r := reporting.NewEvalReport("quiz", 2)
	r.RunID = "run-123"
	r.Generations = []types.GenerationResult{
		{
			GenerationNum: 1,
			DurationMS:    50,
			Tests: []types.TestResult{
				{Name: "test_a", Passed: true, DurationMS: 25},
				{Name: "test_b", Passed: false, Error: "boom", DurationMS: 25},
			},
		},
		{
			GenerationNum: 2,
			DurationMS:    40,
			Tests: []types.TestResult{
				{Name: "test_a", Passed: true, DurationMS: 20},
				{Name: "test_b", Passed: true, DurationMS: 20},
			},
		},
	}
	return r
}

func TestConfigFromFileNotConfigured(t *testing.T) {
	cfg, err := ConfigFromFile(config.Default())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestConfigFromFileMissingAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	fileCfg := config.Default()
	fileCfg.Cloud.Project = "demo"
	fileCfg.Cloud.URL = "https://api.flaky.dev/"

	_, err := ConfigFromFile(fileCfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), APIKeyEnv)
}

func TestConfigFromFileTrimsTrailingSlash(t *testing.T) {
	t.Setenv(APIKeyEnv, "secret")
	fileCfg := config.Default()
	fileCfg.Cloud.Project = "demo"
	fileCfg.Cloud.URL = "https://api.flaky.dev/"

	cfg, err := ConfigFromFile(fileCfg)
	require.NoError(t, err)
	assert.Equal(t, "https://api.flaky.dev", cfg.URL)
	assert.Equal(t, "secret", cfg.APIKey)
}

func TestUploadReportSuccess(t *testing.T) {
	var gotPath, gotAuth, gotKey, gotPrefer string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		gotPrefer = r.Header.Get("Prefer")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(&Config{Project: "demo", URL: srv.URL, APIKey: "secret"}, nil)
	git := gitinfo.Context{Branch: "main", CommitSHA: "abc123", HasRemote: true}

	result := client.UploadReport(context.Background(), sampleReport(), git)

	require.True(t, result.Success, "upload error: %s", result.Error)
	assert.Equal(t, "run-123", result.RunID)
	assert.Equal(t, "https://flaky.dev/demo/origin/main/run_run-123", result.URL)

	assert.Equal(t, "/rest/v1/runs", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "return=representation", gotPrefer)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "demo", payload["project"])
	assert.Equal(t, "main", payload["branch"])
	assert.Equal(t, "origin", payload["branch_type"])
	assert.Equal(t, "abc123", payload["commit_sha"])
	assert.Equal(t, "quiz", payload["case_name"])
	assert.Equal(t, 4.0, payload["total_tests"])
	assert.Equal(t, 3.0, payload["total_passed"])
	assert.Equal(t, 75.0, payload["success_rate"])
	assert.Contains(t, payload, "per_test_breakdown")
	raw, ok := payload["raw_report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "quiz", raw["case_name"])
}

func TestUploadReportServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(&Config{Project: "demo", URL: srv.URL, APIKey: "wrong"}, nil)
	result := client.UploadReport(context.Background(), sampleReport(), gitinfo.Context{Branch: "main"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "401")
	assert.Contains(t, result.Error, "bad api key")
}

func TestUploadReportUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(&Config{Project: "demo", URL: srv.URL, APIKey: "secret"}, nil)
	client.http.RetryMax = 0
	result := client.UploadReport(context.Background(), sampleReport(), gitinfo.Context{Branch: "main"})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestRunURLLocalBranch(t *testing.T) {
	url := RunURL("demo", gitinfo.Context{Branch: "wip"}, "abc")
	assert.Equal(t, "https://flaky.dev/demo/local/wip/run_abc", url)
}
