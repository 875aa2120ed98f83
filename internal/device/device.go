// Package device resolves the "auto" compute device setting to a concrete
// device the inference and synthesis CLIs accept.
package device

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"sublingo/internal/logging"
)

// Device names accepted by the inference stack.
const (
	Auto = "auto"
	CPU  = "cpu"
	CUDA = "cuda"
	MPS  = "mps"
)

// Detector probes the host for usable accelerators.
type Detector struct {
	logger    *slog.Logger
	goos      string
	goarch    string
	cudaProbe func(ctx context.Context) bool
}

// NewDetector constructs a detector for the current host.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{
		logger:    logging.NewComponentLogger(logger, "device"),
		goos:      runtime.GOOS,
		goarch:    runtime.GOARCH,
		cudaProbe: defaultCUDAProbe,
	}
}

// WithHost overrides the detected platform, for tests.
func (d *Detector) WithHost(goos, goarch string) {
	if d == nil {
		return
	}
	d.goos = goos
	d.goarch = goarch
}

// WithCUDAProbe overrides the CUDA availability check, for tests.
func (d *Detector) WithCUDAProbe(probe func(ctx context.Context) bool) {
	if d != nil && probe != nil {
		d.cudaProbe = probe
	}
}

// Resolve maps a configured device to a concrete one. Explicit settings
// pass through untouched; "auto" prefers CUDA, then Apple MPS, then CPU.
func (d *Detector) Resolve(ctx context.Context, requested string) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested != "" && requested != Auto {
		return requested
	}
	if d == nil {
		return CPU
	}

	resolved := CPU
	switch {
	case d.cudaProbe != nil && d.cudaProbe(ctx):
		resolved = CUDA
	case d.goos == "darwin" && d.goarch == "arm64":
		resolved = MPS
	}

	if d.logger != nil {
		d.logger.Debug("resolved compute device", logging.String("device", resolved))
	}
	return resolved
}

// defaultCUDAProbe reports whether nvidia-smi runs cleanly, which is the
// cheapest signal that a usable NVIDIA driver is present.
func defaultCUDAProbe(ctx context.Context) bool {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return false
	}
	return exec.CommandContext(ctx, path, "-L").Run() == nil
}
