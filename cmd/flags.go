package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/diagrampipe/core"
	"github.com/gaurav-prasanna/diagrampipe/core/config"
	"github.com/gaurav-prasanna/diagrampipe/core/render"
)

// Corpus and renderer flag variables, shared by the sub-commands that
// register them.
var (
	flagOutputDir   string
	flagExclude     []string
	flagExt         []string
	flagTag         string
	flagMinLength   int
	flagRenderer    string
	flagRendererBin string
	flagBackground  string
	flagWidth       int
	flagHeight      int
	flagTheme       string
	flagTimeout     time.Duration
	flagJobs        int
)

func addCorpusFlags(cmd *cobra.Command) {
	d := config.Defaults()
	cmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	cmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "Document names or relative paths to skip (default: README.md)")
	cmd.Flags().StringSliceVar(&flagExt, "ext", nil, "Document extensions to scan (default: .md,.markdown,.mdx,.html,.htm)")
	cmd.Flags().StringVar(&flagTag, "tag", d.Tag, "Fence info string that marks a diagram block")
	cmd.Flags().IntVar(&flagMinLength, "min-length", d.MinLength, "Minimum diagram length in characters (exclusive)")
}

func addRendererFlags(cmd *cobra.Command) {
	d := config.Defaults()
	cmd.Flags().StringVar(&flagRenderer, "renderer", d.Renderer, "Renderer backend: mmdc or ink")
	cmd.Flags().StringVar(&flagRendererBin, "renderer-bin", d.RendererBin, "Renderer executable (mmdc backend)")
	cmd.Flags().StringVar(&flagBackground, "background", d.Background, "Image background colour")
	cmd.Flags().IntVar(&flagWidth, "width", d.Width, "Maximum image width in pixels")
	cmd.Flags().IntVar(&flagHeight, "height", d.Height, "Maximum image height in pixels")
	cmd.Flags().StringVar(&flagTheme, "theme", "", "Mermaid theme: default, forest, dark, neutral, base")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Per-diagram render timeout (0 waits indefinitely)")
}

// applyFlags overlays the flags the user set explicitly onto cfg and
// validates the result.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("output_dir") {
		c.OutputDir = flagOutputDir
	}
	if f.Changed("exclude") {
		c.Exclude = flagExclude
	}
	if f.Changed("ext") {
		c.Extensions = flagExt
	}
	if f.Changed("tag") {
		c.Tag = flagTag
	}
	if f.Changed("min-length") {
		c.MinLength = flagMinLength
	}
	if f.Changed("renderer") {
		c.Renderer = flagRenderer
	}
	if f.Changed("renderer-bin") {
		c.RendererBin = flagRendererBin
	}
	if f.Changed("background") {
		c.Background = flagBackground
	}
	if f.Changed("width") {
		c.Width = flagWidth
	}
	if f.Changed("height") {
		c.Height = flagHeight
	}
	if f.Changed("theme") {
		c.Theme = flagTheme
	}
	if f.Changed("timeout") {
		c.Timeout = flagTimeout
	}
	if f.Changed("jobs") {
		c.Jobs = flagJobs
	}
	return c.Validate()
}

// backend is a renderer that can name what it invokes.
type backend interface {
	core.Renderer
	Path() string
}

// selectRenderer creates the Renderer named by the configuration.
func selectRenderer(c config.Config) (backend, error) {
	switch c.Renderer {
	case config.RendererCLI:
		return render.NewCLI(c.RenderOptions()), nil
	case config.RendererInk:
		return render.NewInk(c.RenderOptions()), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q (want %s or %s)", c.Renderer, config.RendererCLI, config.RendererInk)
	}
}
