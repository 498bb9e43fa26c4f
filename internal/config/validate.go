package config

import (
	"net"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	minQueueSize = 1
	maxQueueSize = 4096

	minPersistTimeout = 100 * time.Millisecond
	maxPersistTimeout = time.Minute

	logLevels = []string{"debug", "info", "warn", "error"}
)

// Validate performs validation checks on the Config struct and its fields.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return errInvalidAddr.Fmt(c.Server.Addr)
	}

	if c.Persist.QueueSize < minQueueSize || c.Persist.QueueSize > maxQueueSize {
		return errInvalidQueueSize.Fmt(minQueueSize, maxQueueSize)
	}

	if c.Persist.Timeout < minPersistTimeout || c.Persist.Timeout > maxPersistTimeout {
		return errInvalidPersistTimeout.Fmt(minPersistTimeout, maxPersistTimeout)
	}

	if s := strings.TrimSpace(c.Checkpoint.Schedule); s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			return errInvalidSchedule.Fmt(s).Wrap(err)
		}
	}

	if c.Lifecycle.IdleGrace < 0 {
		return errInvalidIdleGrace
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return errInvalidLogLevel.Fmt(c.Log.Level)
	}

	return nil
}
