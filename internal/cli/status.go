package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regoguard/regoguard/internal/domain/control"
	"github.com/regoguard/regoguard/internal/engine"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog, policy tree, and engine health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := store.Load()
			if err != nil {
				return err
			}

			enabled, disabled := 0, 0
			for _, ctrl := range cat.Controls() {
				st, err := toggler.Status(ctrl.ID)
				if err != nil {
					continue
				}
				if st == control.StatusEnabled {
					enabled++
				} else {
					disabled++
				}
			}

			evaluator := engine.NewConftestEvaluator(log, cfg.Engine.Binary, 0)
			engineStatus := "not available"
			if err := evaluator.CheckInstallation(cmd.Context()); err == nil {
				if v, err := evaluator.Version(cmd.Context()); err == nil {
					engineStatus = v
				} else {
					engineStatus = "installed"
				}
			}

			if getOutputFormat() != "table" {
				return printOutput(map[string]interface{}{
					"catalog":           store.Path(),
					"total_controls":    cat.Len(),
					"enabled_controls":  enabled,
					"disabled_controls": disabled,
					"policy_root":       cfg.Policy.Root,
					"engine":            cfg.Engine.Binary,
					"engine_status":     engineStatus,
					"version":           Version,
				})
			}

			fmt.Printf("regoguard %s\n\n", Version)
			fmt.Printf("Catalog:      %s (%d controls)\n", store.Path(), cat.Len())
			fmt.Printf("Enabled:      %d\n", enabled)
			fmt.Printf("Disabled:     %d\n", disabled)
			fmt.Printf("Policy root:  %s\n", cfg.Policy.Root)
			fmt.Printf("Engine:       %s (%s)\n", cfg.Engine.Binary, engineStatus)
			return nil
		},
	}
}
