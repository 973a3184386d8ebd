// Package observability provides alert lifecycle logging helpers.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"shiftguard/pkg/requestcontext"
)

// Alert lifecycle events.
const (
	EventAlertCreated    = "alert_created"
	EventAlertSuppressed = "alert_suppressed"
	EventAlertResolved   = "alert_resolved"
	EventAlertRolledOver = "alert_rolled_over"
)

// LogAlertEvent logs an alert lifecycle event enriched with the pass and
// request ids from ctx. HIGH and CRITICAL alerts are logged at warn level.
func LogAlertEvent(ctx context.Context, logger *slog.Logger, event string, attrList ...any) {
	if logger == nil {
		return
	}
	if passID := requestcontext.PassID(ctx); passID != "" {
		attrList = append(attrList, "pass_id", passID)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	args := append(attrList, "event", event, "log_type", "alert")

	level := slog.LevelInfo
	switch stringAttr(attrList, "severity") {
	case "HIGH", "CRITICAL":
		if event == EventAlertCreated {
			level = slog.LevelWarn
		}
	}
	logger.Log(ctx, level, event, args...)
}

// stringAttr returns the value logged under key in a key/value list, for
// string and fmt.Stringer values.
func stringAttr(attrList []any, key string) string {
	for i := 0; i+1 < len(attrList); i += 2 {
		if k, ok := attrList[i].(string); !ok || k != key {
			continue
		}
		switch v := attrList[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}
