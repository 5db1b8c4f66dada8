package logger

import (
	"testing"

	"log/slog"
)

// Packages like the conversation flow log through the component loggers
// without going through InitLogger first, so every component must be usable
// from package init onward.
func TestComponentLoggersUsableBeforeInit(t *testing.T) {
	components := map[string]*slog.Logger{
		"L":         L,
		"DB":        DB,
		"TG":        TG,
		"MIG":       MIG,
		"TWire":     TWire,
		"SVCLedger": SVCLedger,
		"SVCFlow":   SVCFlow,
	}
	for name, logg := range components {
		if logg == nil {
			t.Fatalf("%s is nil before InitLogger", name)
		}
	}

	SVCFlow.LogAttrs(Background(), slog.LevelDebug, "wallet.paid",
		slog.Int64("user_id", 1),
	)
	SVCLedger.LogAttrs(Background(), slog.LevelDebug, "balance.debited",
		slog.Int64("user_id", 1),
	)
}
