package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/policyvoice/corroborate/internal/logging"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/pipeline"
)

var (
	outJSON       string
	outMD         string
	verifyTimeout time.Duration
	noCache       bool
	noFooter      bool
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <story.json>",
	Short: "Verify one story against public datasets",
	Long: `Verify routes a story to the adapters for its policy area, checks each
adapter's public dataset for the story's location and merges the results
into one confidence score.

Use "-" to read the story from stdin.

Example:
  corroborate verify story.json
  corroborate verify story.json --json report.json --md report.md
  cat story.json | corroborate verify -`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 15*time.Minute, "overall verification timeout")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable dataset cache")
	verifyCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runVerify(cmd *cobra.Command, args []string) error {
	story, err := readStory(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	if story.ID == "" {
		story.ID = uuid.NewString()
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()
	applyOutputFlags(cmd, cfg)

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	v := p.Verify(ctx, story)

	r := p.Renderer()
	if outJSON != "" {
		if err := r.RenderJSON(v, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}
	if outMD != "" {
		if err := r.RenderMarkdown(v, outMD); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}
	r.RenderSummary(cmd.OutOrStdout(), v)

	if cfg.Output.Verbose {
		for _, name := range v.Adapters {
			rec := v.PerAdapter[name]
			fmt.Fprintf(os.Stderr, "  %-17s relevant=%-5v confidence=%-3d %s\n", name, rec.Relevant, rec.Confidence, rec.DataSource)
		}
	}
	return nil
}

// applyOutputFlags lets command flags override the loaded configuration
func applyOutputFlags(cmd *cobra.Command, cfg *model.Config) {
	if f := cmd.Flags().Lookup("no-cache"); f != nil && f.Changed {
		cfg.Cache.Enabled = !noCache
	}
	if f := cmd.Flags().Lookup("no-footer"); f != nil && f.Changed {
		cfg.Output.IncludeFooter = !noFooter
	}
}

// readStory decodes one story from a file, or stdin when path is "-"
func readStory(path string, stdin io.Reader) (model.Story, error) {
	var story model.Story

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return story, fmt.Errorf("open story: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&story); err != nil {
		return story, fmt.Errorf("decode story: %w", err)
	}
	if story.Headline == "" && story.Body == "" {
		return story, fmt.Errorf("story needs a headline or body")
	}
	return story, nil
}
