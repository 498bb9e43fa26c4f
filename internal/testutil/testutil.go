package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/barsamuebles/cronos/internal/osutil"
)

type GoldenTest interface {
	Output() ([]byte, string)
}

// CompareGoldenFile verifies that the output of an operation matches
// the expected output.
func CompareGoldenFile(t *testing.T, tc GoldenTest) {
	t.Helper()

	if runtime.GOOS == osutil.Windows {
		// TODO: need to sort out line endings
		t.Skip("skipping golden file test in Windows")
	}

	g := goldie.New(
		t,
		goldie.WithFixtureDir("testdata"),
	)

	snap, golden := tc.Output()

	if snap != nil {
		g.Assert(t, golden, snap)
		return
	}

	f := filepath.Join("testdata", golden+".golden")
	if _, err := os.Stat(f); err == nil || errors.Is(err, os.ErrExist) {
		t.Fatalf("expected no output, but golden file exists: %s", f)
	}
}

// Clock is a manually advanced clock for timer tests.
type Clock struct {
	now time.Time
	mu  sync.Mutex
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock by d, which may be negative.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
