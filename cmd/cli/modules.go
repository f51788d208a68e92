package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ostrand/zmapd/internal/logging"
	"github.com/ostrand/zmapd/internal/zmap"
)

var modulesProbeModule string

// modulesCmd represents the modules command group.
var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect the scanning engine",
	Long: `Query the installed zmap binary for its available probe modules,
output modules, output fields, and version.`,
	Example: `  zmapd modules probes
  zmapd modules outputs
  zmapd modules fields --probe-module icmp_echoscan
  zmapd modules version`,
}

// modulesProbesCmd lists the engine's probe modules.
var modulesProbesCmd = &cobra.Command{
	Use:     "probes",
	Short:   "List available probe modules",
	Example: `  zmapd modules probes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModuleListing("Probe Module", func(ctx context.Context, engine *zmap.ZMap) ([]string, error) {
			return engine.ProbeModules(ctx)
		})
	},
}

// modulesOutputsCmd lists the engine's output modules.
var modulesOutputsCmd = &cobra.Command{
	Use:     "outputs",
	Short:   "List available output modules",
	Example: `  zmapd modules outputs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModuleListing("Output Module", func(ctx context.Context, engine *zmap.ZMap) ([]string, error) {
			return engine.OutputModules(ctx)
		})
	},
}

// modulesFieldsCmd lists the output fields for a probe module.
var modulesFieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List available output fields",
	Long: `List the output fields the engine can record. With --probe-module,
the fields for that probe module are listed; otherwise the engine
default applies.`,
	Example: `  zmapd modules fields
  zmapd modules fields --probe-module tcp_synscan`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModuleListing("Output Field", func(ctx context.Context, engine *zmap.ZMap) ([]string, error) {
			return engine.OutputFields(ctx, modulesProbeModule)
		})
	},
}

// modulesVersionCmd prints the engine's version string.
var modulesVersionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show the engine version",
	Example: `  zmapd modules version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		version, err := engine.Version(context.Background())
		if err != nil {
			return fmt.Errorf("failed to query engine version: %w", err)
		}
		fmt.Println(version)
		return nil
	},
}

// interfacesCmd lists the host's network interfaces.
var interfacesCmd = &cobra.Command{
	Use:     "interfaces",
	Short:   "List network interfaces usable for scanning",
	Example: `  zmapd interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := zmap.Interfaces()
		if err != nil {
			return fmt.Errorf("failed to list interfaces: %w", err)
		}
		renderListing("Interface", names)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(interfacesCmd)

	modulesCmd.AddCommand(modulesProbesCmd)
	modulesCmd.AddCommand(modulesOutputsCmd)
	modulesCmd.AddCommand(modulesFieldsCmd)
	modulesCmd.AddCommand(modulesVersionCmd)

	modulesFieldsCmd.Flags().StringVar(&modulesProbeModule, "probe-module", "", "Probe module to list fields for")
}

// newEngine builds a facade from the loaded configuration.
func newEngine() (*zmap.ZMap, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return zmap.New(cfg.Engine, logging.Default(), nil), nil
}

// runModuleListing queries the engine and renders the returned names.
func runModuleListing(header string, query func(context.Context, *zmap.ZMap) ([]string, error)) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	names, err := query(context.Background(), engine)
	if err != nil {
		return fmt.Errorf("engine query failed: %w", err)
	}

	renderListing(header, names)
	return nil
}

// renderListing prints a single-column table of names.
func renderListing(header string, names []string) {
	if len(names) == 0 {
		fmt.Println("No entries found")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header(header)
	for _, name := range names {
		_ = table.Append([]string{name})
	}
	_ = table.Render()
}
