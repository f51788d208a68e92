package zmap

import (
	"context"
	"os"
	"time"

	"github.com/ostrand/zmapd/internal/config"
	"github.com/ostrand/zmapd/internal/errors"
	"github.com/ostrand/zmapd/internal/logging"
	"github.com/ostrand/zmapd/internal/metrics"
)

// ScanStatus reports the outcome of one scan execution.
type ScanStatus string

const (
	StatusCompleted ScanStatus = "completed"
	StatusFailed    ScanStatus = "failed"
)

// ScanResult is the outcome of one scan: the discovered targets in the
// order the engine emitted them, the resolved output file, and an error
// description when the scan failed.
type ScanResult struct {
	Status     ScanStatus `json:"status"`
	Targets    []string   `json:"ips_found"`
	Records    []Record   `json:"records,omitempty"`
	OutputFile string     `json:"output_file,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ScanOptions carries per-call inputs for one scan: run options plus the
// caller's timeout. A zero Timeout falls back to the engine default from
// configuration; zero there as well means no timeout.
type ScanOptions struct {
	RunOptions
	Timeout time.Duration
}

// ZMap is the service facade combining configuration validation, argument
// translation, subprocess execution, and result parsing for one scan call.
// It holds no mutable state and is safe for concurrent use; parallel
// scanning is achieved by concurrent calls, each with its own subprocess.
type ZMap struct {
	runner               *Runner
	logger               *logging.Logger
	metrics              *metrics.Metrics
	tempDir              string
	defaultScanTimeout   time.Duration
	introspectionTimeout time.Duration
}

// New creates a facade around the configured engine binary.
func New(cfg config.EngineConfig, logger *logging.Logger, m *metrics.Metrics) *ZMap {
	if logger == nil {
		logger = logging.Default()
	}
	return &ZMap{
		runner:               NewRunner(cfg.Binary, logger),
		logger:               logger.WithComponent("zmap"),
		metrics:              m,
		tempDir:              cfg.TempDir,
		defaultScanTimeout:   cfg.DefaultScanTimeout,
		introspectionTimeout: cfg.IntrospectionTimeout,
	}
}

// Scan executes one scan synchronously. The configuration is re-validated,
// translated to an argument list, and run to completion (or timeout); the
// declared output file is then parsed into the result.
//
// An output file is always in play: when the caller supplies none, a
// uniquely named temporary file is created so result parsing has a single
// code path. The file is left in place for the caller to read or delete.
// On failure the returned result carries status "failed" and the error
// description alongside the error itself.
func (z *ZMap) Scan(ctx context.Context, cfg *ScanConfig, opts ScanOptions) (*ScanResult, error) {
	if err := cfg.Validate(); err != nil {
		return z.failed("", err), err
	}

	outputFile := opts.OutputFile
	if outputFile == "" {
		path, err := z.tempFile("zmap_scan_", ".txt")
		if err != nil {
			return z.failed("", err), err
		}
		outputFile = path
	}

	runOpts := opts.RunOptions
	runOpts.OutputFile = outputFile

	args, err := BuildArgs(cfg, runOpts)
	if err != nil {
		return z.failed(outputFile, err), err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = z.defaultScanTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	z.logger.Info("Starting scan", "output_file", outputFile, "timeout", timeout)
	z.recordInvocation("scan")
	if z.metrics != nil {
		z.metrics.ScanStarted()
	}

	start := time.Now()
	_, _, err = z.runner.Run(ctx, args)
	elapsed := time.Since(start)

	if err != nil {
		z.logger.ErrorEngine("Scan failed", err, "elapsed", elapsed)
		z.recordFailure(err, elapsed)
		return z.failed(outputFile, err), err
	}

	targets, records, err := z.parseOutput(outputFile, runOpts.OutputFields)
	if err != nil {
		z.recordFailure(err, elapsed)
		return z.failed(outputFile, err), err
	}

	z.logger.Info("Scan completed", "targets", len(targets), "elapsed", elapsed)
	if z.metrics != nil {
		z.metrics.ScanFinished(string(StatusCompleted), elapsed, len(targets))
	}

	return &ScanResult{
		Status:     StatusCompleted,
		Targets:    targets,
		Records:    records,
		OutputFile: outputFile,
	}, nil
}

// parseOutput reads the output destination. When explicit output fields
// were requested the file holds delimiter-separated records; the plain
// target list is then taken from the first requested field.
func (z *ZMap) parseOutput(path string, fields []string) ([]string, []Record, error) {
	if len(fields) == 0 {
		targets, err := ParseResultFile(path, true)
		return targets, nil, err
	}

	records, err := ParseRecordsFile(path, fields, true)
	if err != nil {
		return nil, nil, err
	}
	targets := make([]string, len(records))
	for i, record := range records {
		targets[i] = record[fields[0]]
	}
	return targets, records, nil
}

func (z *ZMap) failed(outputFile string, err error) *ScanResult {
	return &ScanResult{
		Status:     StatusFailed,
		OutputFile: outputFile,
		Error:      err.Error(),
	}
}

func (z *ZMap) recordInvocation(mode string) {
	if z.metrics != nil {
		z.metrics.EngineInvocation(mode)
	}
}

func (z *ZMap) recordFailure(err error, elapsed time.Duration) {
	if z.metrics != nil {
		z.metrics.EngineError(string(errors.GetCode(err)))
		z.metrics.ScanFinished(string(StatusFailed), elapsed, 0)
	}
}

// Introspection queries. These route through the runner's informational
// modes and the shared list parser; no scan needs to have run.

// ProbeModules returns the engine's available probe modules.
func (z *ZMap) ProbeModules(ctx context.Context) ([]string, error) {
	ctx, cancel := z.introspectionContext(ctx)
	defer cancel()

	z.recordInvocation("probe-modules")
	out, err := z.runner.ListProbeModules(ctx)
	if err != nil {
		return nil, err
	}
	return ParseLines(out), nil
}

// OutputModules returns the engine's available output modules.
func (z *ZMap) OutputModules(ctx context.Context) ([]string, error) {
	ctx, cancel := z.introspectionContext(ctx)
	defer cancel()

	z.recordInvocation("output-modules")
	out, err := z.runner.ListOutputModules(ctx)
	if err != nil {
		return nil, err
	}
	return ParseLines(out), nil
}

// OutputFields returns the output fields available for a probe module, or
// for the engine default when probeModule is empty.
func (z *ZMap) OutputFields(ctx context.Context, probeModule string) ([]string, error) {
	ctx, cancel := z.introspectionContext(ctx)
	defer cancel()

	z.recordInvocation("output-fields")
	out, err := z.runner.ListOutputFields(ctx, probeModule)
	if err != nil {
		return nil, err
	}
	return ParseLines(out), nil
}

// Version returns the engine's version string.
func (z *ZMap) Version(ctx context.Context) (string, error) {
	ctx, cancel := z.introspectionContext(ctx)
	defer cancel()

	z.recordInvocation("version")
	return z.runner.Version(ctx)
}

func (z *ZMap) introspectionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if z.introspectionTimeout > 0 {
		return context.WithTimeout(ctx, z.introspectionTimeout)
	}
	return context.WithCancel(ctx)
}

// Blocklist and allowlist files.

// CreateBlocklist writes the given CIDR subnets to destination, one per
// line in input order, and returns the resolved path. An empty destination
// creates a uniquely named temporary file.
func (z *ZMap) CreateBlocklist(subnets []string, destination string) (string, error) {
	return z.createSubnetFile(subnets, destination, "zmap_blocklist_")
}

// CreateAllowlist writes the given CIDR subnets to destination, one per
// line in input order, and returns the resolved path.
func (z *ZMap) CreateAllowlist(subnets []string, destination string) (string, error) {
	return z.createSubnetFile(subnets, destination, "zmap_allowlist_")
}

// GenerateStandardBlocklist writes the standard reserved-range blocklist
// to destination and returns the resolved path.
func (z *ZMap) GenerateStandardBlocklist(destination string) (string, error) {
	return z.createSubnetFile(standardBlocklist, destination, "zmap_std_blocklist_")
}

func (z *ZMap) createSubnetFile(subnets []string, destination, prefix string) (string, error) {
	if destination == "" {
		path, err := z.tempFile(prefix, ".txt")
		if err != nil {
			return "", err
		}
		destination = path
	}
	if err := writeSubnetFile(subnets, destination); err != nil {
		return "", err
	}
	return destination, nil
}

// tempFile creates a uniquely named file and closes its descriptor
// immediately; only the path is needed.
func (z *ZMap) tempFile(prefix, suffix string) (string, error) {
	f, err := os.CreateTemp(z.tempDir, prefix+"*"+suffix)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
