package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

// Fields is the correlation data stamped on every record logged while one
// update is handled.
type Fields struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
	State    string
}

type ctxKey int

const (
	fieldsKey ctxKey = iota
	loggerKey
)

// ForUpdate returns ctx carrying the identifiers of one Telegram update and
// the "tg" component logger.
func ForUpdate(ctx context.Context, updateID int, chatID, userID int64) context.Context {
	ctx = WithFields(ctx, Fields{
		RID:      BuildRID(updateID, chatID, userID),
		UpdateID: updateID,
		UserID:   userID,
		ChatID:   chatID,
	})
	return WithLogger(ctx, Component("tg"))
}

// WithFields replaces the correlation fields carried by ctx.
func WithFields(ctx context.Context, f Fields) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, fieldsKey, f)
}

// FieldsFrom returns the correlation fields carried by ctx, zero when none.
func FieldsFrom(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey).(Fields)
	return f
}

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	f := FieldsFrom(ctx)
	f.Handler = handler
	return WithFields(ctx, f)
}

// WithState names the conversation state the update arrived in.
func WithState(ctx context.Context, state string) context.Context {
	if state == "" {
		return ctx
	}
	f := FieldsFrom(ctx)
	f.State = state
	return WithFields(ctx, f)
}

// Attrs renders the non-zero fields as slog attributes.
func (f Fields) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 6)
	if f.RID != "" {
		attrs = append(attrs, slog.String("rid", f.RID))
	}
	if f.UpdateID != 0 {
		attrs = append(attrs, slog.Int("update_id", f.UpdateID))
	}
	if f.UserID != 0 {
		attrs = append(attrs, slog.Int64("user_id", f.UserID))
	}
	if f.ChatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", f.ChatID))
	}
	if f.Handler != "" {
		attrs = append(attrs, slog.String("handler", f.Handler))
	}
	if f.State != "" {
		attrs = append(attrs, slog.String("state", f.State))
	}
	return attrs
}

// WithLogger stores log in ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// BuildRID formats a correlation id as update:chat:user.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID rewrites update:chat:user as base36 segments joined by dots.
// Anything else is returned unchanged.
func CompactRID(rid string) string {
	parts := strings.Split(strings.TrimSpace(rid), ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}

// SanitizeLimit drops control and format runes, keeping tabs and newlines,
// and cuts the result to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == max {
			break
		}
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
