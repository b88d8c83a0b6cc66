// Package render implements the Renderer interface.
// This file drives the Mermaid CLI (mmdc) as a subprocess: the diagram
// source is written to a transient .mmd file next to the target image,
// mmdc is invoked with a fixed argument contract, and the image's
// existence is the success criterion.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBin        = "mmdc"
	DefaultBackground = "transparent"
	DefaultWidth      = 2048
	DefaultHeight     = 2048

	// SourceExt is the extension of the transient diagram source file.
	SourceExt = ".mmd"

	// waitDelay bounds how long a killed renderer may hold its pipes open.
	waitDelay = 2 * time.Second
)

// Options configures a renderer backend.
type Options struct {
	Bin             string        // executable name or path (CLI only)
	Background      string        // background colour, "transparent" by default
	Width           int           // maximum width in pixels
	Height          int           // maximum height in pixels
	Theme           string        // optional Mermaid theme
	PuppeteerConfig string        // optional puppeteer config file (CLI only)
	Timeout         time.Duration // per job; zero waits indefinitely
	BaseURL         string        // service URL (ink only)
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Bin) == "" {
		o.Bin = DefaultBin
	}
	if strings.TrimSpace(o.Background) == "" {
		o.Background = DefaultBackground
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if strings.TrimSpace(o.BaseURL) == "" {
		o.BaseURL = DefaultInkURL
	}
	return o
}

// CLI renders diagrams with the Mermaid command line tool.
type CLI struct {
	opts Options
	path string // resolved by Check
}

// NewCLI creates a CLI renderer with defaults filled in.
func NewCLI(opts Options) *CLI {
	opts = opts.withDefaults()
	return &CLI{opts: opts, path: opts.Bin}
}

// Check resolves the renderer executable on PATH.
func (r *CLI) Check(_ context.Context) error {
	path, err := exec.LookPath(r.opts.Bin)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH; install it with: npm install -g @mermaid-js/mermaid-cli: %v",
			ErrRendererUnavailable, r.opts.Bin, err)
	}
	r.path = path
	return nil
}

// Path returns the executable that Render invokes.
func (r *CLI) Path() string {
	return r.path
}

// Version asks the renderer for its version string.
func (r *CLI) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("querying %s version: %w", r.path, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// TransientPath returns the source file used for the image at output.
// It is hidden and carries a ".render" infix so it never replaces a
// diagram source exported next to the image.
func TransientPath(output string) string {
	dir, name := filepath.Split(output)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, "."+stem+".render"+SourceExt)
}

// Args returns the renderer argument list for one job.
func (r *CLI) Args(input, output string) []string {
	args := []string{
		"-i", input,
		"-o", output,
		"-b", r.opts.Background,
		"-w", strconv.Itoa(r.opts.Width),
		"-H", strconv.Itoa(r.opts.Height),
	}
	if r.opts.Theme != "" {
		args = append(args, "-t", r.opts.Theme)
	}
	if r.opts.PuppeteerConfig != "" {
		args = append(args, "-p", r.opts.PuppeteerConfig)
	}
	return args
}

// Render writes source to a transient file, runs the renderer and checks
// that output exists. The transient file is removed on every path.
func (r *CLI) Render(ctx context.Context, source string, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return &Error{Output: output, Message: "creating output directory", Cause: err}
	}

	input := TransientPath(output)
	if err := os.WriteFile(input, []byte(source), 0644); err != nil {
		return &Error{Output: output, Message: "writing transient source", Cause: err}
	}
	defer func() {
		_ = os.Remove(input)
	}()

	// A stale image from an earlier run must not count as success.
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return &Error{Output: output, Message: "removing previous image", Cause: err}
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.path, r.Args(input, output)...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &Error{
			Output:  output,
			Message: "renderer failed",
			Detail:  diagnostics(stdout.String(), stderr.String()),
			Cause:   err,
		}
	}

	if _, err := os.Stat(output); err != nil {
		return &Error{
			Output:  output,
			Message: "renderer exited cleanly",
			Detail:  diagnostics(stdout.String(), stderr.String()),
			Cause:   ErrOutputMissing,
		}
	}
	return nil
}

// diagnostics prefers stderr and falls back to stdout.
func diagnostics(stdout, stderr string) string {
	if detail := strings.TrimSpace(stderr); detail != "" {
		return detail
	}
	return strings.TrimSpace(stdout)
}
