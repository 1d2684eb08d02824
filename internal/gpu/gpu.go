// Package gpu decides whether CUDA-capable hardware is usable.
package gpu

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

const probeTimeout = 5 * time.Second

// Available reports whether `nvidia-smi -L` lists at least one device.
func Available(ctx context.Context, runner Runner) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := runner.Output(ctx, "nvidia-smi", "-L")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "GPU ") {
			return true
		}
	}
	return false
}

// Resolve turns an "auto", "true" or "false" setting into a decision,
// probing the hardware only for "auto".
func Resolve(ctx context.Context, setting string, runner Runner) (bool, error) {
	if strings.EqualFold(setting, "auto") || setting == "" {
		return Available(ctx, runner), nil
	}
	v, err := strconv.ParseBool(setting)
	if err != nil {
		return false, fmt.Errorf("invalid gpu setting %q: want auto, true or false", setting)
	}
	return v, nil
}
