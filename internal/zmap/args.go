package zmap

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ostrand/zmapd/internal/errors"
)

// RunOptions carries the per-invocation inputs that accompany a ScanConfig:
// target subnets, file paths, and module selection. These are not part of
// the persisted configuration.
type RunOptions struct {
	// Subnets to scan, passed to the engine as positional arguments.
	// Empty means the engine's default (the full address space minus the
	// blocklist).
	Subnets []string

	// OutputFile is where the engine writes discovered targets.
	OutputFile string

	BlocklistFile string
	AllowlistFile string

	ProbeModule  string
	OutputModule string

	// OutputFields selects per-field structured output. Field order in
	// the engine's output matches this request.
	OutputFields []string
}

// BuildArgs translates a validated configuration plus run options into the
// ordered argument list for the engine. The mapping is pure and
// deterministic: booleans appear only when true, optional scalars only when
// set, and list values are comma-joined.
//
// The rate/bandwidth exclusivity is guaranteed by ScanConfig.Validate, but
// is asserted again here: a violation at this point means the configuration
// was mutated after validation and is reported as a TranslationError.
func BuildArgs(cfg *ScanConfig, opts RunOptions) ([]string, error) {
	if cfg.Rate != nil && cfg.Bandwidth != nil {
		return nil, errors.NewTranslationError(
			"configuration sets both rate (%d) and bandwidth (%s)", *cfg.Rate, *cfg.Bandwidth)
	}

	var args []string

	appendInt := func(flag string, v *int) {
		if v != nil {
			args = append(args, flag+"="+strconv.Itoa(*v))
		}
	}
	appendString := func(flag string, v *string) {
		if v != nil {
			args = append(args, flag+"="+*v)
		}
	}

	appendInt("--target-port", cfg.TargetPort)
	appendString("--bandwidth", cfg.Bandwidth)
	appendInt("--rate", cfg.Rate)
	appendInt("--cooldown-time", cfg.Cooldown)
	appendString("--interface", cfg.Interface)
	appendString("--source-ip", cfg.SourceIP)
	appendString("--source-port", cfg.SourcePort)
	appendString("--gateway-mac", cfg.GatewayMAC)
	appendString("--source-mac", cfg.SourceMAC)
	appendString("--target-mac", cfg.TargetMAC)
	if cfg.VPN {
		args = append(args, "--vpn")
	}

	appendString("--max-targets", cfg.MaxTargets)
	appendInt("--max-runtime", cfg.MaxRuntime)
	appendInt("--max-results", cfg.MaxResults)
	appendInt("--probes", cfg.Probes)
	appendInt("--retries", cfg.Retries)
	if cfg.DryRun {
		args = append(args, "--dryrun")
	}
	if cfg.Seed != nil {
		args = append(args, "--seed="+strconv.FormatInt(*cfg.Seed, 10))
	}
	appendInt("--shards", cfg.Shards)
	appendInt("--shard", cfg.Shard)

	appendInt("--sender-threads", cfg.SenderThreads)
	if len(cfg.Cores) > 0 {
		args = append(args, "--cores="+joinInts(cfg.Cores))
	}
	if cfg.IgnoreInvalidHosts {
		args = append(args, "--ignore-invalid-hosts")
	}
	appendInt("--max-sendto-failures", cfg.MaxSendtoFailures)
	if cfg.MinHitrate != nil {
		args = append(args, "--min-hitrate="+strconv.FormatFloat(*cfg.MinHitrate, 'f', -1, 64))
	}

	appendString("--notes", cfg.Notes)
	if len(cfg.UserMetadata) > 0 {
		args = append(args, "--user-metadata="+metadataValue(cfg.UserMetadata))
	}

	if opts.OutputFile != "" {
		args = append(args, "--output-file="+opts.OutputFile)
	}
	if opts.BlocklistFile != "" {
		args = append(args, "--blocklist-file="+opts.BlocklistFile)
	}
	if opts.AllowlistFile != "" {
		args = append(args, "--allowlist-file="+opts.AllowlistFile)
	}
	if opts.ProbeModule != "" {
		args = append(args, "--probe-module="+opts.ProbeModule)
	}
	if opts.OutputModule != "" {
		args = append(args, "--output-module="+opts.OutputModule)
	}
	if len(opts.OutputFields) > 0 {
		args = append(args, "--output-fields="+strings.Join(opts.OutputFields, ","))
	}

	args = append(args, opts.Subnets...)

	return args, nil
}

// metadataValue renders user metadata for the engine. A pre-serialized JSON
// string is unquoted so the engine receives the metadata itself, not a
// doubly-encoded string.
func metadataValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
