package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Blocklist and allowlist command flags.
var (
	blocklistOutput string
	allowlistOutput string
	standardOutput  string
)

// blocklistCmd represents the blocklist command group.
var blocklistCmd = &cobra.Command{
	Use:   "blocklist",
	Short: "Manage blocklist files",
	Long: `Create blocklist files for scan exclusion.

Blocklist files hold one CIDR subnet per line and are passed to scans
via --blocklist. The standard blocklist covers the IANA reserved and
special-purpose IPv4 ranges.`,
	Example: `  zmapd blocklist create 10.0.0.0/8 172.16.0.0/12 --output blocklist.txt
  zmapd blocklist standard --output blocklist.txt`,
}

// blocklistCreateCmd writes the given subnets to a blocklist file.
var blocklistCreateCmd = &cobra.Command{
	Use:     "create [subnets...]",
	Short:   "Create a blocklist file from subnets",
	Args:    cobra.MinimumNArgs(1),
	Example: `  zmapd blocklist create 192.168.0.0/16 --output blocklist.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		path, err := engine.CreateBlocklist(args, blocklistOutput)
		if err != nil {
			return fmt.Errorf("failed to create blocklist: %w", err)
		}
		fmt.Printf("Blocklist written: %s\n", path)
		return nil
	},
}

// blocklistStandardCmd writes the standard reserved-range blocklist.
var blocklistStandardCmd = &cobra.Command{
	Use:     "standard",
	Short:   "Generate the standard reserved-range blocklist",
	Example: `  zmapd blocklist standard --output blocklist.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		path, err := engine.GenerateStandardBlocklist(standardOutput)
		if err != nil {
			return fmt.Errorf("failed to generate standard blocklist: %w", err)
		}
		fmt.Printf("Standard blocklist written: %s\n", path)
		return nil
	},
}

// allowlistCmd writes the given subnets to an allowlist file.
var allowlistCmd = &cobra.Command{
	Use:   "allowlist [subnets...]",
	Short: "Create an allowlist file from subnets",
	Long: `Create an allowlist file restricting scans to the given subnets.

Allowlist files hold one CIDR subnet per line and are passed to scans
via --allowlist.`,
	Args:    cobra.MinimumNArgs(1),
	Example: `  zmapd allowlist 10.10.0.0/16 --output allowlist.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		path, err := engine.CreateAllowlist(args, allowlistOutput)
		if err != nil {
			return fmt.Errorf("failed to create allowlist: %w", err)
		}
		fmt.Printf("Allowlist written: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blocklistCmd)
	rootCmd.AddCommand(allowlistCmd)

	blocklistCmd.AddCommand(blocklistCreateCmd)
	blocklistCmd.AddCommand(blocklistStandardCmd)

	blocklistCreateCmd.Flags().StringVarP(&blocklistOutput, "output", "o", "", "Destination file (default is a temporary file)")
	blocklistStandardCmd.Flags().StringVarP(&standardOutput, "output", "o", "", "Destination file (default is a temporary file)")
	allowlistCmd.Flags().StringVarP(&allowlistOutput, "output", "o", "", "Destination file (default is a temporary file)")
}
