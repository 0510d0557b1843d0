package cli

import (
	"github.com/spf13/cobra"

	"github.com/regoguard/regoguard/internal/iac/terraform"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Produce infrastructure change documents",
	}

	cmd.AddCommand(newPlanRenderCmd())

	return cmd
}

func newPlanRenderCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "render <terraform-dir>",
		Short: "Render Terraform sources into an evaluable plan document",
		Long: `Render parses the .tf files in a directory and produces a plan-shaped
JSON document for evaluation. Only literal attribute values are
resolved; for production use, feed a real plan export to evaluate
instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := terraform.NewRenderer().RenderDir(args[0])
			if err != nil {
				return err
			}
			data, err := doc.Marshal()
			if err != nil {
				return err
			}
			return writeOrPrint(outputPath, data)
		},
	}

	cmd.Flags().StringVar(&outputPath, "output", "", "write the document to this path instead of stdout")

	return cmd
}
