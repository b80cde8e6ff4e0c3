package application

import "log/slog"

// ModuleName is the value of the "module" key on every log line this context emits.
const ModuleName = "finance-core/commission-escrow-service"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
