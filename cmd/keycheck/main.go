package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"keycheck/internal/checker"
	"keycheck/internal/gemini"
	"keycheck/internal/keyio"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run carries the whole CLI so tests can drive it in-process. The returned
// value is the process exit code: 0 on success (including empty input),
// 2 on configuration or I/O errors.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keycheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inputPath := fs.String("input", "", "Path to key list file, one key per line (default: stdin)")
	outputPath := fs.String("output", "", "Path for valid keys (default: stdout)")
	format := fs.String("format", "list", "Output format: list|json_array")
	model := fs.String("model", envOr("GEMINI_MODEL", checker.DefaultModel), "Gemini model used for the validation probe")
	baseURL := fs.String("base-url", envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"), "Gemini-compatible base URL")
	workers := fs.Int("workers", checker.DefaultWorkers, "Number of concurrent probes")
	timeout := fs.Duration("timeout", checker.DefaultTimeout, "Per-probe HTTP timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	outputFormat, err := keyio.ParseFormat(*format)
	if err != nil {
		return fail(stderr, err.Error())
	}
	if strings.TrimSpace(*model) == "" {
		return fail(stderr, "model must not be empty")
	}
	if *workers <= 0 {
		return fail(stderr, "workers must be a positive integer")
	}

	keys, err := readInput(*inputPath, stdin)
	if err != nil {
		return fail(stderr, err.Error())
	}
	if len(keys) == 0 {
		fmt.Fprintln(stderr, "no keys found in input")
		if err := writeOutput(*outputPath, stdout, nil, outputFormat); err != nil {
			return fail(stderr, err.Error())
		}
		return 0
	}

	client := gemini.NewClient(gemini.Config{
		BaseURL: *baseURL,
		Timeout: *timeout,
	})
	prober := checker.NewProber(client, *model)
	reporter := checker.NewStreamReporter(stderr)

	fmt.Fprintf(stderr, "checking %d keys with model %q, workers: %d...\n", len(keys), *model, *workers)
	start := time.Now()
	results := checker.Run(ctx, prober, keys, checker.RunConfig{
		Workers: *workers,
		Timeout: *timeout,
	}, reporter, nil)
	valid := checker.ValidKeys(results)

	summary := checker.Summarize(results)
	fmt.Fprintf(stderr, "done in %s: %d of %d keys valid\n",
		time.Since(start).Round(time.Millisecond), summary.Valid, summary.Total)

	if err := writeOutput(*outputPath, stdout, valid, outputFormat); err != nil {
		return fail(stderr, err.Error())
	}
	if *outputPath != "" {
		fmt.Fprintf(stderr, "results saved to %s\n", *outputPath)
	}
	return 0
}

func readInput(path string, stdin io.Reader) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return keyio.ReadKeys(stdin)
	}
	return keyio.ReadKeysFromPath(path)
}

func writeOutput(path string, stdout io.Writer, keys []string, format keyio.Format) error {
	if strings.TrimSpace(path) == "" {
		return keyio.WriteKeys(stdout, keys, format)
	}
	return keyio.WriteKeysToPath(path, keys, format)
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func fail(stderr io.Writer, message string) int {
	fmt.Fprintln(stderr, "error:", message)
	return 2
}
