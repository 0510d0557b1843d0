package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regoguard/regoguard/internal/policy"
)

func newControlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Manage individual controls",
	}

	cmd.AddCommand(newControlEnableCmd())
	cmd.AddCommand(newControlDisableCmd())
	cmd.AddCommand(newControlStatusCmd())
	cmd.AddCommand(newControlShowCmd())
	cmd.AddCommand(newControlNewCmd())

	return cmd
}

func newControlEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a control's rule logic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := toggler.Enable(args[0])
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Printf("Control %s is already enabled\n", res.ControlID)
				return nil
			}
			fmt.Printf("Control %s enabled\n", res.ControlID)
			return nil
		},
	}
}

func newControlDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a control without deleting its implementation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := toggler.Disable(args[0])
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Printf("Control %s is already disabled\n", res.ControlID)
				return nil
			}
			fmt.Printf("Control %s disabled\n", res.ControlID)
			return nil
		},
	}
}

func newControlStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show a control's toggle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := toggler.Status(args[0])
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(map[string]string{"control_id": args[0], "status": st})
			}
			fmt.Printf("%s: %s\n", args[0], formatToggleStatus(st))
			return nil
		},
	}
}

func newControlShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a control's catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := store.Load()
			if err != nil {
				return err
			}
			ctrl, err := cat.Get(args[0])
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(ctrl)
			}

			fmt.Printf("ID:          %s\n", ctrl.ID)
			fmt.Printf("Title:       %s\n", ctrl.Title)
			fmt.Printf("Severity:    %s\n", formatSeverity(ctrl.Severity))
			fmt.Printf("Cloud:       %s\n", ctrl.Cloud)
			fmt.Printf("Domain:      %s\n", ctrl.Domain)
			fmt.Printf("Policy file: %s\n", ctrl.PolicyFile)
			if ctrl.Description != "" {
				fmt.Printf("Description: %s\n", ctrl.Description)
			}
			if ctrl.Remediation != "" {
				fmt.Printf("Remediation: %s\n", ctrl.Remediation)
			}
			for name, refs := range ctrl.Frameworks {
				fmt.Printf("Framework:   %s (%s)\n", name, strings.Join(refs, ", "))
			}
			return nil
		},
	}
}

func newControlNewCmd() *cobra.Command {
	var title, description, remediation, severity, cloudFlag, domainFlag, category string
	var frameworks []string
	var optional bool

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Scaffold a new control",
		Long: `Scaffold a new control: assigns the next available id for the
domain, appends a disabled implementation skeleton to the policy file,
and registers the catalog entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scaffolder := policy.NewScaffolder(store, cfg.Policy.Root, log)

			fw, err := parseFrameworkRefs(frameworks)
			if err != nil {
				return err
			}

			ctrl, err := scaffolder.New(policy.Request{
				Title:       title,
				Description: description,
				Remediation: remediation,
				Severity:    strings.ToUpper(severity),
				Cloud:       cloudFlag,
				Domain:      domainFlag,
				Frameworks:  fw,
				Optional:    optional,
				Category:    category,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created control %s (%s) in %s\n", ctrl.ID, ctrl.Severity, ctrl.PolicyFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "control title (required)")
	cmd.Flags().StringVar(&description, "description", "", "control description")
	cmd.Flags().StringVar(&remediation, "remediation", "", "remediation guidance")
	cmd.Flags().StringVar(&severity, "severity", "MEDIUM", "severity: LOW, MEDIUM, HIGH, CRITICAL")
	cmd.Flags().StringVar(&cloudFlag, "cloud", "", "cloud provider: aws, azure, multi (required)")
	cmd.Flags().StringVar(&domainFlag, "domain", "", "control domain (required)")
	cmd.Flags().StringArrayVar(&frameworks, "framework", nil, "framework mapping as name:ref1,ref2 (repeatable)")
	cmd.Flags().BoolVar(&optional, "optional", false, "create as an opt-in control")
	cmd.Flags().StringVar(&category, "category", "", "optional-control category: strict, experimental, environment-specific")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("cloud")
	_ = cmd.MarkFlagRequired("domain")

	return cmd
}

// parseFrameworkRefs parses repeated name:ref1,ref2 flags.
func parseFrameworkRefs(flags []string) (map[string][]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(flags))
	for _, f := range flags {
		name, refs, found := strings.Cut(f, ":")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid framework mapping %q, expected name:ref1,ref2", f)
		}
		for _, ref := range strings.Split(refs, ",") {
			if ref = strings.TrimSpace(ref); ref != "" {
				out[name] = append(out[name], ref)
			}
		}
	}
	return out, nil
}
