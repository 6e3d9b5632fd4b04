package sim

import (
	"fmt"
	"strconv"
)

// ExecutionContext describes the resources a simulation may use on this
// process: a number of worker threads and optionally one GPU.
type ExecutionContext struct {
	Threads int
	GPUID   *int // nil when no GPU is available
}

// NewExecutionContext returns a context with the given thread count and GPU.
// Pass a nil gpuID for CPU-only execution.
func NewExecutionContext(threads int, gpuID *int) (ExecutionContext, error) {
	ctx := ExecutionContext{Threads: threads, GPUID: gpuID}
	if err := ctx.Validate(); err != nil {
		return ExecutionContext{}, err
	}
	return ctx, nil
}

// Validate checks that the context can run a simulation.
func (c ExecutionContext) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("thread count must be at least 1, got %d", c.Threads)
	}
	if c.GPUID != nil && *c.GPUID < 0 {
		return fmt.Errorf("gpu id must be non-negative, got %d", *c.GPUID)
	}
	return nil
}

// HasGPU reports whether a GPU was assigned.
func (c ExecutionContext) HasGPU() bool {
	return c.GPUID != nil
}

// NumRanks is the number of distributed ranks. Only single-process execution
// is supported.
func (c ExecutionContext) NumRanks() int {
	return 1
}

func (c ExecutionContext) String() string {
	gpu := "none"
	if c.GPUID != nil {
		gpu = strconv.Itoa(*c.GPUID)
	}
	return fmt.Sprintf("<context: threads %d, gpu %s, distributed local ranks %d>", c.Threads, gpu, c.NumRanks())
}
