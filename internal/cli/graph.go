package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/panelkit/panelkit/internal/app"
	"github.com/panelkit/panelkit/pkg/registry"
)

// newGraphCmd creates the graph command: export the service dependency
// graph as DOT or SVG.
func newGraphCmd(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the service dependency graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			a, err := app.Bootstrap(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			dot := a.Registry.ToDOT()

			var data []byte
			if strings.HasSuffix(output, ".svg") {
				p := newProgress(logger)
				data, err = registry.RenderSVG(ctx, dot)
				if err != nil {
					return err
				}
				p.done("Rendered dependency graph")
			} else {
				data = []byte(dot)
			}

			if err := os.WriteFile(output, data, 0644); err != nil {
				return err
			}
			printSuccess("Wrote dependency graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "services.svg", "output file (.svg or .dot)")
	return cmd
}
