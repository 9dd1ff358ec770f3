package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/systemstart/dcm2bids/pkg/api"
	"github.com/systemstart/dcm2bids/pkg/logging"
	"github.com/systemstart/dcm2bids/pkg/processing"
	"github.com/systemstart/dcm2bids/pkg/steps"
)

var version = "dev"

// Internal exit codes start above the range tools use for their own
// failures (1..125) so a propagated tool status is never mistaken for one.
const (
	exitCodeBase = 200 + iota
	exitLoggingSetupFailed
	exitDotenvError
	exitLoadToolsFileFailed
	exitDicomsDirectoryNotSpecified
	exitBidsDirectoryNotSpecified
	exitSubjectNotSpecified
	exitSessionNotSpecified
	exitRunFailed
	exitNoDicoms
	exitToolErrors
	exitReportUnreadable
)

var (
	dicomsDirectory string
	bidsDirectory   string
	sortedDirectory string
	subject         string
	session         string
	toolsFile       string
	workRoot        string
	loggingType     string
	logLevel        string
	showVersion     bool
)

func init() {
	flag.StringVar(
		&dicomsDirectory,
		"dicoms_dir",
		"",
		"directory containing DICOM files")
	flag.StringVar(
		&bidsDirectory,
		"bids_dir",
		"",
		"output BIDS directory")
	flag.StringVar(
		&sortedDirectory,
		"sorted_dir",
		"",
		"already sorted DICOM directory (skips sorting)")
	flag.StringVar(
		&subject,
		"sub",
		"",
		`subject id, "sub-" is stripped`)
	flag.StringVar(
		&session,
		"ses",
		"",
		`session id, "ses-" is stripped`)
	flag.StringVar(
		&toolsFile,
		"tools-config",
		"",
		"YAML file overriding the sorter, converter and validator commands")
	flag.StringVar(
		&workRoot,
		"work-root",
		"",
		"parent directory for the temporary work directory (default: system temp dir)")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := logging.Initialize(loggingType, logLevel, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitLoggingSetupFailed)
	}

	includeEnv()
	checkRequiredFlags()

	runner := processing.NewRunner(loadTools())
	runner.WorkRoot = workRoot

	start := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result, err := runner.Run(ctx, api.PipelineConfig{
		DicomsDir: dicomsDirectory,
		BidsDir:   bidsDirectory,
		SortedDir: sortedDirectory,
		SubjectID: subject,
		SessionID: session,
	})
	stop()

	if err != nil {
		slog.Error("workflow failed", "error", err)
		fmt.Fprintln(os.Stdout, failureMessage(time.Since(start)))
		os.Exit(exitCode(err))
	}

	printReport(os.Stdout, result)
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}

func checkRequiredFlags() {
	required := []struct {
		value string
		name  string
		code  int
	}{
		{dicomsDirectory, "-dicoms_dir", exitDicomsDirectoryNotSpecified},
		{bidsDirectory, "-bids_dir", exitBidsDirectoryNotSpecified},
		{subject, "-sub", exitSubjectNotSpecified},
		{session, "-ses", exitSessionNotSpecified},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			slog.Error(r.name + " not set")
			flag.Usage()
			os.Exit(r.code)
		}
	}
}

func loadTools() *api.ToolsConfig {
	if toolsFile == "" {
		return api.DefaultTools()
	}

	tools, err := api.LoadTools(toolsFile)
	if err != nil {
		slog.Error("failed to load tools file", "filename", toolsFile, "error", err)
		os.Exit(exitLoadToolsFileFailed)
	}
	return tools
}

// exitCode propagates the failing tool's own exit status when it has one.
func exitCode(err error) int {
	var toolErr *steps.ExternalToolError
	if errors.As(err, &toolErr) {
		if toolErr.ExitCode > 0 {
			return toolErr.ExitCode
		}
		return exitToolErrors
	}

	var reportErr *steps.ReportError
	switch {
	case errors.As(err, &reportErr):
		return exitReportUnreadable
	case errors.Is(err, processing.ErrNoDicoms):
		return exitNoDicoms
	default:
		return exitRunFailed
	}
}

func printReport(w io.Writer, result *processing.Result) {
	if result.Report != nil {
		text := result.Report.Text
		fmt.Fprint(w, text)
		if text != "" && !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w, completionMessage(result.Elapsed))
}

func completionMessage(elapsed time.Duration) string {
	return "Workflow completed successfully in " + formatElapsed(elapsed) + "."
}

func failureMessage(elapsed time.Duration) string {
	return "Workflow failed after " + formatElapsed(elapsed) + "."
}

func formatElapsed(elapsed time.Duration) string {
	elapsed = elapsed.Round(time.Second)
	minutes := int(elapsed / time.Minute)
	seconds := int((elapsed % time.Minute) / time.Second)
	return fmt.Sprintf("%d minutes and %d seconds", minutes, seconds)
}
