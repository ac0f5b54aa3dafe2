package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/policyvoice/corroborate/internal/logging"
	"github.com/policyvoice/corroborate/internal/pipeline"
)

// adaptersCmd represents the adapters command
var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List adapters, their sources and quota budgets",
	Args:  cobra.NoArgs,
	RunE:  runAdapters,
}

func init() {
	rootCmd.AddCommand(adaptersCmd)
}

func runAdapters(cmd *cobra.Command, args []string) error {
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

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADAPTER\tENABLED\tKEY\tACCOUNT\tSOURCE")
	for _, a := range p.Adapters() {
		account := a.Account
		if account == "" {
			account = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Name, yesNo(a.Enabled), yesNo(a.KeyConfigured), account, a.Source)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	quotas, err := p.Quotas(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tREMAINING\tLIMIT\tWINDOW\tBACKEND")
	for _, q := range quotas {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", q.Account, q.Remaining, q.Limit, q.Window, q.Backend)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
