package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ostrand/zmapd/internal/logging"
	"github.com/ostrand/zmapd/internal/metrics"
	"github.com/ostrand/zmapd/internal/zmap"
)

// Scan command flags.
var (
	scanConfigFile   string
	scanTargetPort   int
	scanRate         int
	scanBandwidth    string
	scanMaxTargets   string
	scanMaxRuntime   int
	scanMaxResults   int
	scanProbes       int
	scanSeed         int64
	scanDryRun       bool
	scanOutputFile   string
	scanBlocklist    string
	scanAllowlist    string
	scanProbeModule  string
	scanOutputModule string
	scanOutputFields []string
	scanTimeout      time.Duration
	scanJSON         bool
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [subnets...]",
	Short: "Run a scan and print discovered targets",
	Long: `Run one zmap scan synchronously and print the discovered targets.

Subnets are passed to the engine as positional arguments; with none,
the engine scans its default address space. Scan parameters come from
flags, or from a JSON configuration file via --scan-config (flags
override file values). Most scans require root privileges.`,
	Example: `  zmapd scan --target-port 80 192.168.0.0/16
  zmapd scan --target-port 443 --rate 10000 --output results.txt 10.0.0.0/8
  zmapd scan --scan-config scan.json --fields saddr,classification
  zmapd scan --target-port 80 --dry-run 192.168.1.0/24`,
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanConfigFile, "scan-config", "", "JSON scan configuration file")
	scanCmd.Flags().IntVarP(&scanTargetPort, "target-port", "p", -1, "TCP/UDP port to probe")
	scanCmd.Flags().IntVar(&scanRate, "rate", 0, "Send rate in packets per second")
	scanCmd.Flags().StringVar(&scanBandwidth, "bandwidth", "", "Send bandwidth (e.g. 10M); conflicts with --rate")
	scanCmd.Flags().StringVar(&scanMaxTargets, "max-targets", "", "Maximum targets to probe (count or percentage like '10%')")
	scanCmd.Flags().IntVar(&scanMaxRuntime, "max-runtime", 0, "Maximum seconds to spend sending packets")
	scanCmd.Flags().IntVar(&scanMaxResults, "max-results", 0, "Stop after this many results")
	scanCmd.Flags().IntVar(&scanProbes, "probes", 0, "Probes to send per target")
	scanCmd.Flags().Int64Var(&scanSeed, "seed", -1, "Seed for address permutation")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Print packets instead of sending them")
	scanCmd.Flags().StringVarP(&scanOutputFile, "output", "o", "", "Output file for discovered targets")
	scanCmd.Flags().StringVar(&scanBlocklist, "blocklist", "", "File of subnets to exclude, in CIDR notation")
	scanCmd.Flags().StringVar(&scanAllowlist, "allowlist", "", "File of subnets to include, in CIDR notation")
	scanCmd.Flags().StringVar(&scanProbeModule, "probe-module", "", "Probe module to use")
	scanCmd.Flags().StringVar(&scanOutputModule, "output-module", "", "Output module to use")
	scanCmd.Flags().StringSliceVar(&scanOutputFields, "fields", nil, "Output fields to record (comma-separated)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "Abort the scan after this duration (e.g. 10m)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the full result as JSON")

	scanCmd.MarkFlagsMutuallyExclusive("rate", "bandwidth")
}

// runScanCmd handles the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig()
	if err != nil {
		return err
	}

	appCfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine := zmap.New(appCfg.Engine, logging.Default(), metrics.New())

	opts := zmap.ScanOptions{
		RunOptions: zmap.RunOptions{
			Subnets:       args,
			OutputFile:    scanOutputFile,
			BlocklistFile: scanBlocklist,
			AllowlistFile: scanAllowlist,
			ProbeModule:   scanProbeModule,
			OutputModule:  scanOutputModule,
			OutputFields:  scanOutputFields,
		},
		Timeout: scanTimeout,
	}

	if verbose {
		data, _ := cfg.ToJSON()
		fmt.Fprintf(os.Stderr, "Scan configuration: %s\n", data)
	}

	result, err := engine.Scan(context.Background(), cfg, opts)
	if err != nil {
		if scanJSON && result != nil {
			printJSON(result)
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanJSON {
		return printJSON(result)
	}

	printScanResult(result, scanOutputFields)
	return nil
}

// buildScanConfig assembles the scan configuration from the optional
// config file and command line flags. Flags override file values.
func buildScanConfig() (*zmap.ScanConfig, error) {
	cfg := &zmap.ScanConfig{}
	if scanConfigFile != "" {
		loaded, err := zmap.LoadConfig(scanConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load scan config: %w", err)
		}
		cfg = loaded
	}

	if scanTargetPort >= 0 {
		cfg.TargetPort = zmap.Int(scanTargetPort)
	}
	if scanRate > 0 {
		cfg.Rate = zmap.Int(scanRate)
		cfg.Bandwidth = nil
	}
	if scanBandwidth != "" {
		cfg.Bandwidth = zmap.String(scanBandwidth)
		cfg.Rate = nil
	}
	if scanMaxTargets != "" {
		cfg.MaxTargets = zmap.String(scanMaxTargets)
	}
	if scanMaxRuntime > 0 {
		cfg.MaxRuntime = zmap.Int(scanMaxRuntime)
	}
	if scanMaxResults > 0 {
		cfg.MaxResults = zmap.Int(scanMaxResults)
	}
	if scanProbes > 0 {
		cfg.Probes = zmap.Int(scanProbes)
	}
	if scanSeed >= 0 {
		cfg.Seed = zmap.Int64(scanSeed)
	}
	if scanDryRun {
		cfg.DryRun = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printScanResult prints a human-readable summary of a completed scan.
func printScanResult(result *zmap.ScanResult, fields []string) {
	fmt.Printf("Scan %s: %d targets found\n", result.Status, len(result.Targets))
	if result.OutputFile != "" {
		fmt.Printf("Output file: %s\n", result.OutputFile)
	}

	if len(result.Records) > 0 && len(fields) > 0 {
		fmt.Println()
		table := tablewriter.NewWriter(os.Stdout)
		table.Header(fields)
		for _, record := range result.Records {
			row := make([]string, len(fields))
			for i, field := range fields {
				row[i] = record[field]
			}
			_ = table.Append(row)
		}
		_ = table.Render()
		return
	}

	for _, target := range result.Targets {
		fmt.Println(target)
	}
}

// printJSON writes a value as indented JSON to stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
