package zmap

import (
	"bytes"
	"context"
	stderrors "errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/ostrand/zmapd/internal/errors"
	"github.com/ostrand/zmapd/internal/logging"
)

// Introspection flags understood by the engine.
const (
	flagListProbeModules  = "--list-probe-modules"
	flagListOutputModules = "--list-output-modules"
	flagListOutputFields  = "--list-output-fields"
	flagVersion           = "--version"
)

// permissionPhrases are the stderr fragments zmap and libpcap emit when the
// OS denies raw-socket or interface access. Matching them lets callers tell
// a privilege problem apart from a broken scan.
var permissionPhrases = []string{
	"permission denied",
	"operation not permitted",
	"you must be root",
	"couldn't open device",
}

// Runner executes the scanning engine as a subprocess. It owns all process
// handling so the rest of the system never touches exec details directly.
// A Runner is stateless and safe for concurrent use.
type Runner struct {
	binary string
	logger *logging.Logger
}

// NewRunner creates a runner for the given engine binary. A bare binary
// name is resolved through PATH at invocation time.
func NewRunner(binary string, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		binary: binary,
		logger: logger.WithComponent("engine"),
	}
}

// Run invokes the engine with the given arguments and blocks until it exits
// or ctx is done. Standard output and standard error are fully captured.
//
// Outcome classification:
//   - ctx deadline exceeded: the subprocess is killed and a *TimeoutError
//     with the elapsed duration and partial output is returned.
//   - nonzero exit with a privilege-denial message on stderr:
//     *PermissionError.
//   - any other nonzero exit: *ExecError with exit code, stderr, and the
//     argument list.
func (r *Runner) Run(ctx context.Context, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	// Bound the post-kill wait so an orphaned child holding the output
	// pipe cannot stall the call indefinitely.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("Invoking engine", "binary", r.binary, "args", strings.Join(args, " "))

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		r.logger.Warn("Engine invocation timed out", "elapsed", elapsed)
		partial := stdout.String() + stderr.String()
		return stdout.String(), stderr.String(), errors.NewTimeoutError(elapsed, partial)
	}

	if err != nil {
		return stdout.String(), stderr.String(), r.classifyFailure(err, stderr.String(), args)
	}

	r.logger.Debug("Engine invocation completed", "elapsed", elapsed)
	return stdout.String(), stderr.String(), nil
}

// classifyFailure maps a subprocess failure onto the error taxonomy.
func (r *Runner) classifyFailure(err error, stderr string, args []string) error {
	if stderrors.Is(err, fs.ErrPermission) {
		return errors.NewPermissionError("engine binary is not executable", err)
	}

	lower := strings.ToLower(stderr)
	for _, phrase := range permissionPhrases {
		if strings.Contains(lower, phrase) {
			return errors.NewPermissionError(
				"engine was denied raw-socket or interface access: "+strings.TrimSpace(stderr), err)
		}
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return errors.NewExecError(exitErr.ExitCode(), stderr, args, err)
	}

	// Binary missing or not startable
	return errors.NewExecError(-1, stderr, args, err)
}

// Informational invocation modes. These run the engine with introspection
// flags instead of a scan; output parsing belongs to the caller.

// ListProbeModules returns the raw probe module listing.
func (r *Runner) ListProbeModules(ctx context.Context) (string, error) {
	stdout, _, err := r.Run(ctx, []string{flagListProbeModules})
	return stdout, err
}

// ListOutputModules returns the raw output module listing.
func (r *Runner) ListOutputModules(ctx context.Context) (string, error) {
	stdout, _, err := r.Run(ctx, []string{flagListOutputModules})
	return stdout, err
}

// ListOutputFields returns the raw output field listing, scoped to a probe
// module when one is given.
func (r *Runner) ListOutputFields(ctx context.Context, probeModule string) (string, error) {
	args := []string{flagListOutputFields}
	if probeModule != "" {
		args = append(args, "--probe-module="+probeModule)
	}
	stdout, _, err := r.Run(ctx, args)
	return stdout, err
}

// Version returns the engine's version string, trimmed to its first line.
func (r *Runner) Version(ctx context.Context) (string, error) {
	stdout, _, err := r.Run(ctx, []string{flagVersion})
	if err != nil {
		return "", err
	}
	version, _, _ := strings.Cut(strings.TrimSpace(stdout), "\n")
	return strings.TrimSpace(version), nil
}
