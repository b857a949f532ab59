package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/flaky-dev/flaky/cloud"
	"github.com/flaky-dev/flaky/config"
	"github.com/flaky-dev/flaky/flags"
	"github.com/flaky-dev/flaky/gitinfo"
	"github.com/flaky-dev/flaky/reporting"
	"github.com/flaky-dev/flaky/runner"
	"github.com/flaky-dev/flaky/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	// A .env file can carry FLAKY_API_KEY and flag overrides; absence is
	// fine.
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "flaky"
	app.Usage = "Reliability testing for non-deterministic workloads"
	app.Description = "flaky runs an eval suite many times in isolated processes and reports how often each test passes"
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "Run an eval case (or all cases) for N generations",
			Flags:  flags.Flags,
			Action: runAction,
		},
		{
			Name:   "list",
			Usage:  "List discovered eval cases",
			Flags:  []cli.Flag{flags.EvalsDir, flags.LogLevel},
			Action: listAction,
		},
	}
	app.Action = func(c *cli.Context) error {
		cli.ShowAppHelp(c) //nolint:errcheck
		return cli.Exit("", 1)
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newLogger(c *cli.Context) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.String(flags.LogLevel.Name))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// loadConfig resolves file config and applies command-line overrides: an
// explicitly set flag always wins over flaky.yaml.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(config.DefaultFile)
	if err != nil {
		return nil, err
	}
	if c.IsSet(flags.EvalsDir.Name) {
		cfg.EvalsDir = c.String(flags.EvalsDir.Name)
	}
	if c.IsSet(flags.Runs.Name) {
		cfg.Runs = c.Int(flags.Runs.Name)
	}
	if c.IsSet(flags.MaxWorkers.Name) {
		cfg.MaxWorkers = c.Int(flags.MaxWorkers.Name)
	}
	return cfg, nil
}

func runAction(c *cli.Context) error {
	log := newLogger(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := runner.NewRunner(runner.Config{
		CasesDir:   cfg.EvalsDir,
		GoBinary:   c.String(flags.GoBinary.Name),
		Log:        log,
		GenTimeout: c.Duration(flags.Timeout.Name),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var caseNames []string
	switch {
	case c.Bool(flags.All.Name):
		caseNames, err = r.DiscoverCases()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if len(caseNames) == 0 {
			return cli.Exit(fmt.Sprintf("no eval cases found in %s", cfg.EvalsDir), 1)
		}
	case c.String(flags.CaseName.Name) != "":
		caseNames = []string{c.String(flags.CaseName.Name)}
	default:
		return cli.Exit("either --case or --all is required", 1)
	}

	format := c.String(flags.Format.Name)
	if format != "text" && format != "json" {
		return cli.Exit(fmt.Sprintf("unknown format %q: want 'text' or 'json'", format), 1)
	}

	parallel := c.Bool(flags.Parallel.Name)
	if c.Bool(flags.Sequential.Name) {
		parallel = false
	}

	ctx := context.Background()

	if c.Bool(flags.Metrics.Name) {
		svc := service.New(log)
		svc.Start(ctx)
		defer svc.Shutdown()
	}

	uploader, err := newUploader(cfg, log)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	// Test failures are data, not errors: the command exits zero as long as
	// every requested case ran.
	textOut := reporting.NewTextFormatter(os.Stdout, format == "text")
	var reports []*reporting.EvalReport
	for _, name := range caseNames {
		report, err := runOneCase(ctx, r, name, cfg, parallel, format, textOut)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		reports = append(reports, report)

		if uploader != nil {
			result := uploadReport(ctx, uploader, report)
			announceUpload(os.Stdout, result, format == "text", log, report.CaseName)
		}
	}

	return presentResults(reports, format, textOut, c.Bool(flags.All.Name))
}

func runOneCase(ctx context.Context, r *runner.Runner, name string, cfg *config.Config, parallel bool, format string, textOut *reporting.TextFormatter) (*reporting.EvalReport, error) {
	opts := runner.RunOptions{
		NumRuns:    cfg.Runs,
		Parallel:   parallel,
		MaxWorkers: cfg.MaxWorkers,
	}

	// One probe serves both validation and the banner; the suite binary is
	// only compiled once before the generations start.
	probe, err := r.ProbeCase(ctx, name)
	if err != nil {
		return nil, err
	}

	if format == "text" {
		textOut.PrintRunBanner(name, probe.Cases, opts.NumRuns, parallel)
		opts.OnGeneration = textOut.PrintGenerationProgress
		opts.OnGenerationError = textOut.PrintGenerationFailure
	}

	return r.RunProbed(ctx, name, probe, opts)
}

func presentResults(reports []*reporting.EvalReport, format string, textOut *reporting.TextFormatter, all bool) error {
	if format == "json" {
		var data []byte
		var err error
		if all {
			data, err = reporting.SuiteToJSON(&reporting.SuiteSummary{Reports: reports})
		} else {
			data, err = reporting.ReportToJSON(reports[0])
		}
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Println(string(data))
		return nil
	}

	for _, report := range reports {
		textOut.PrintSummary(report)
	}
	if all {
		textOut.PrintSuiteSummary(&reporting.SuiteSummary{Reports: reports})
	}
	return nil
}

func newUploader(cfg *config.Config, log *logrus.Logger) (*cloud.Client, error) {
	cloudCfg, err := cloud.ConfigFromFile(cfg)
	if err != nil {
		return nil, err
	}
	if cloudCfg == nil {
		return nil, nil
	}
	return cloud.NewClient(cloudCfg, log), nil
}

func uploadReport(ctx context.Context, client *cloud.Client, report *reporting.EvalReport) cloud.UploadResult {
	git := gitinfo.Collect(ctx, ".")
	return client.UploadReport(ctx, report, git)
}

// announceUpload reports the upload outcome. Only text mode may write to w;
// in JSON mode stdout carries nothing but the report, so the outcome goes to
// the logger instead.
func announceUpload(w io.Writer, result cloud.UploadResult, textMode bool, log *logrus.Logger, caseName string) {
	if !result.Success {
		log.WithField("case", caseName).Warnf("cloud upload failed: %s", result.Error)
		return
	}
	if textMode {
		fmt.Fprintf(w, "\nUploaded to %s\n", result.URL)
		return
	}
	log.WithField("case", caseName).Infof("uploaded to %s", result.URL)
}

func listAction(c *cli.Context) error {
	log := newLogger(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := runner.NewRunner(runner.Config{CasesDir: cfg.EvalsDir, Log: log})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cases, err := r.DiscoverCases()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(cases) == 0 {
		fmt.Printf("No eval cases found in %s\n", cfg.EvalsDir)
		return nil
	}

	fmt.Println("Available eval cases:")
	for _, name := range cases {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
