package logger

import (
	"log/slog"
	"strings"
)

// outcomeValues is the closed outcome vocabulary. Conversation turns report
// noop, restart and fault; transport layers report the rest.
var outcomeValues = set("ok", "fail", "cancelled", "rate_limited", "noop", "restart", "fault")

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// normalizeEnums lower-cases status and outcome and removes outcomes
// outside the vocabulary.
func normalizeEnums(fields map[string]any) {
	if s, ok := fields["status"].(string); ok {
		fields["status"] = strings.ToLower(s)
	}
	if o, ok := fields["outcome"].(string); ok {
		o = strings.ToLower(o)
		if _, known := outcomeValues[o]; !known {
			delete(fields, "outcome")
			return
		}
		fields["outcome"] = o
	}
}

// defaultKeyOrder leads every line; remaining keys follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler",
	"state", "next_state", "namespace", "action", "outcome",
	"duration_ms", "messages", "kb", "payload", "username",
	"attempt", "attempts", "delay_ms", "elapsed_ms",
	"limit", "window_ms", "tracked", "sessions", "evicted",
	"path", "classes", "drugs", "questions", "cases",
	"mode", "listen", "db", "breaker",
	"err", "err_code", "error_kind", "cause",
}
