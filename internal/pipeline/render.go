package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/policyvoice/corroborate/internal/model"
)

// Renderer writes verification reports as JSON, Markdown and a terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the verification as indented JSON
func (r *Renderer) RenderJSON(v model.AggregatedVerification, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the verification as a Markdown report
func (r *Renderer) RenderMarkdown(v model.AggregatedVerification, path string) error {
	return writeFile(path, []byte(r.Markdown(v)))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders the verification as Markdown
func (r *Renderer) Markdown(v model.AggregatedVerification) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Verification report: %s\n\n", v.StoryID)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Verified | %s |\n", yesNo(v.Verified))
	fmt.Fprintf(&b, "| Confidence | %d/100 |\n", v.Confidence)
	fmt.Fprintf(&b, "| Data source | %s |\n", v.DataSource)
	if v.Degraded {
		fmt.Fprintf(&b, "| Data quality | fallback data used |\n")
	}
	if !v.CheckedAt.IsZero() {
		fmt.Fprintf(&b, "| Checked at | %s |\n", v.CheckedAt.Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n")

	if len(v.Flags) > 0 {
		b.WriteString("## Flags\n\n")
		for _, f := range v.Flags {
			fmt.Fprintf(&b, "- **%s** `%s`: %s\n", strings.ToUpper(string(f.Severity)), f.Code, f.Message)
		}
		b.WriteString("\n")
	}

	if len(v.Insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, in := range v.Insights {
			fmt.Fprintf(&b, "- _%s_: %s\n", in.Type, in.Message)
		}
		b.WriteString("\n")
	}

	if len(v.Adapters) > 0 {
		b.WriteString("## Adapters\n\n")
		b.WriteString("| Adapter | Relevant | Confidence | Verified | Source |\n|---|---|---|---|---|\n")
		for _, name := range v.Adapters {
			rec := v.PerAdapter[name]
			confidence := "-"
			if rec.Relevant {
				confidence = fmt.Sprintf("%d", rec.Confidence)
			}
			source := rec.DataSource
			if source == "" {
				source = "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", name, yesNo(rec.Relevant), confidence, yesNo(rec.Verified), source)
		}
		b.WriteString("\n")

		for _, name := range v.Fired {
			rec := v.PerAdapter[name]
			if len(rec.Metrics) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s inputs\n\n", name)
			keys := make([]string, 0, len(rec.Metrics))
			for k := range rec.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "- %s: %v\n", k, rec.Metrics[k])
			}
			b.WriteString("\n")
		}
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Confidence reflects how well public datasets corroborate the story's context. ")
		b.WriteString("It is not a judgement of the storyteller's honesty._\n")
	}
	return b.String()
}

// RenderSummary prints a short terminal summary
func (r *Renderer) RenderSummary(w io.Writer, v model.AggregatedVerification) {
	status := "✗ not verified"
	if v.Verified {
		status = "✓ verified"
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Story %s: %s (confidence %d/100)\n", v.StoryID, status, v.Confidence)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Source:   %s\n", v.DataSource)
	fmt.Fprintf(w, "  Routed:   %s\n", listOrNone(v.Adapters))
	fmt.Fprintf(w, "  Fired:    %s\n", listOrNone(v.Fired))
	if v.Degraded {
		fmt.Fprintf(w, "  ⚠ fallback data used for at least one source\n")
	}
	for _, f := range v.Flags {
		fmt.Fprintf(w, "  ⚑ [%s] %s\n", f.Severity, f.Message)
	}
	fmt.Fprintf(w, "\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func listOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
