package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/policyvoice/corroborate/internal/classify"
	"github.com/policyvoice/corroborate/internal/logging"
	"github.com/policyvoice/corroborate/internal/model"
	"github.com/policyvoice/corroborate/internal/pipeline"
)

var routeJSON bool

// routeCmd represents the route command
var routeCmd = &cobra.Command{
	Use:   "route <story.json>",
	Short: "Show which adapters a story would be checked against",
	Long: `Route explains the adapter selection for a story without calling any
upstream: adapters chosen by policy area first, then adapters added by
trigger vocabulary in the text.

Example:
  corroborate route story.json
  corroborate route story.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "print routes as JSON")
}

func runRoute(cmd *cobra.Command, args []string) error {
	story, err := readStory(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	routes := p.Route(story)
	area := model.ParsePolicyArea(string(story.PolicyArea))

	out := cmd.OutOrStdout()
	if routeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			PolicyArea model.PolicyArea `json:"policyArea"`
			Routes     []classify.Route `json:"routes"`
		}{area, routes})
	}

	fmt.Fprintf(out, "Policy area: %s\n", area)
	if len(routes) == 0 {
		fmt.Fprintf(out, "No adapters apply; the story would receive neutral confidence.\n")
		return nil
	}
	for i, r := range routes {
		fmt.Fprintf(out, "  %d. %s\n", i+1, r)
	}
	return nil
}
