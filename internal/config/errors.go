package config

import "github.com/barsamuebles/cronos/internal/apperr"

var (
	errConfigOption = &apperr.Error{
		Message: "config option error",
	}

	errConfigValidation = &apperr.Error{
		Message: "config validation error",
	}

	errReadConfig = &apperr.Error{
		Message: "reading config file failed",
	}

	errWriteConfig = &apperr.Error{
		Message: "writing default config failed",
	}

	errResolvePath = &apperr.Error{
		Message: "resolving cronos file locations failed",
	}

	errInvalidAddr = &apperr.Error{
		Message: "server address must be host:port, got %q",
	}

	errInvalidQueueSize = &apperr.Error{
		Message: "persist queue size must be between %d and %d",
	}

	errInvalidPersistTimeout = &apperr.Error{
		Message: "persist timeout must be between %v and %v",
	}

	errInvalidSchedule = &apperr.Error{
		Message: "invalid checkpoint schedule %q",
	}

	errInvalidIdleGrace = &apperr.Error{
		Message: "idle grace period cannot be negative",
	}

	errInvalidLogLevel = &apperr.Error{
		Message: "unknown log level %q (must be debug, info, warn, or error)",
	}
)
