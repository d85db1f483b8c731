package summary

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Stone-IT-Cloud/devreport/internal/log"
)

// CLIBackend pipes the context document into the gemini command-line tool
// and reads a JSON envelope back from its stdout.
type CLIBackend struct {
	path  string
	retry RetryConfig
}

var _ Summarizer = (*CLIBackend)(nil)

// NewCLIBackend locates tool on PATH. A missing tool is ErrBackendUnavailable.
func NewCLIBackend(tool string, retry RetryConfig) (*CLIBackend, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s' not found in PATH", ErrBackendUnavailable, tool)
	}
	return &CLIBackend{path: path, retry: retry}, nil
}

// Name implements Summarizer.
func (b *CLIBackend) Name() string { return "cli" }

// Args are the tool arguments: flags first, then the prompt.
func (b *CLIBackend) Args() []string {
	return []string{"--output-format", "json", Prompt}
}

// Summarize implements Summarizer.
func (b *CLIBackend) Summarize(ctx context.Context, contextPath string) (*Result, error) {
	log.Info("Piping context from %s to %s...", contextPath, b.path)

	raw, err := withRetry(ctx, b.retry, "gemini CLI", func(ctx context.Context) (string, error) {
		return b.run(ctx, contextPath)
	})
	if err != nil {
		log.Error("Gemini CLI failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	return decodeOrWarn(raw)
}

func (b *CLIBackend) run(ctx context.Context, contextPath string) (string, error) {
	// #nosec G304 -- The context file is the scratch file created by this process.
	f, err := os.Open(contextPath)
	if err != nil {
		return "", fmt.Errorf("failed to open context file: %w", err)
	}
	defer f.Close()

	cmd := exec.CommandContext(ctx, b.path, b.Args()...) // #nosec G204
	cmd.Stdin = f
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w\nstderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
