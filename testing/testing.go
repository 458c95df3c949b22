// Package testing provides fixtures shared by the pipeline tests: synthetic rasters, a
// recording canvas.Drawer, an in-memory raster.Loader and an observed logger.
package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leeforge/imageproc/logging"
)

// TestContext holds a bounded context for a single test.
type TestContext struct {
	t      *testing.T
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closers []func() error
	logs    *observer.ObservedLogs
	logger  logging.Logger
}

// NewTestContext creates a context that is canceled after 30s or when the test ends.
func NewTestContext(t *testing.T) *TestContext {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	core, logs := observer.New(zapcore.DebugLevel)
	tc := &TestContext{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
		logs:   logs,
		logger: logging.FromZap(zap.New(core)),
	}
	t.Cleanup(tc.Cleanup)
	return tc
}

// Context returns the context
func (tc *TestContext) Context() context.Context {
	return tc.ctx
}

// Logger returns a logger whose entries are captured in Logs.
func (tc *TestContext) Logger() logging.Logger {
	return tc.logger
}

// Logs returns the captured log entries.
func (tc *TestContext) Logs() *observer.ObservedLogs {
	return tc.logs
}

// OnCleanup registers fn to run when the test ends.
func (tc *TestContext) OnCleanup(fn func() error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.closers = append(tc.closers, fn)
}

// Cleanup cleans up resources
func (tc *TestContext) Cleanup() {
	tc.cancel()
	tc.mu.Lock()
	closers := tc.closers
	tc.closers = nil
	tc.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			tc.t.Logf("cleanup failed: %v", err)
		}
	}
}
