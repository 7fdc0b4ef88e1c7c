package logger

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

type presetField struct {
	key string
	val any
}

// structuredHandler writes one flat line per record. Groups become dotted
// key prefixes, durations become *_ms integers and correlation fields from
// the context fill keys the record left unset.
type structuredHandler struct {
	cfg    handlerConfig
	preset []presetField
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = defaultKeyOrder
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	ts := r.Time.UTC()
	fields := map[string]any{
		"ts":    ts.Truncate(time.Millisecond).Format(tsLayout),
		"level": levelName(r.Level),
	}
	if h.cfg.format == formatJSON {
		fields["ts_unix_nano"] = ts.UnixNano()
	}
	for _, p := range h.preset {
		fields[p.key] = p.val
	}
	r.Attrs(func(a slog.Attr) bool {
		putAttr(fields, h.prefix, a)
		return true
	})
	for _, a := range FieldsFrom(ctx).Attrs() {
		if _, set := fields[a.Key]; !set {
			putAttr(fields, "", a)
		}
	}

	if rid, ok := fields["rid"].(string); ok {
		if compact := CompactRID(rid); compact != rid {
			if _, set := fields["rid_full"]; !set && h.cfg.format == formatJSON {
				fields["rid_full"] = rid
			}
			fields["rid"] = compact
		}
	}
	if _, ok := fields["event"]; !ok {
		fields["event"] = cmp.Or(r.Message, "unknown")
	}
	if _, ok := fields["component"]; !ok {
		fields["component"] = "app"
	}
	normalizeEnums(fields)

	keys := orderKeys(fields, h.cfg.keyOrder)
	var (
		line []byte
		err  error
	)
	if h.cfg.format == formatJSON {
		line, err = encodeJSON(fields, keys)
	} else {
		line = encodeKV(fields, keys)
	}
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(map[string]any, len(attrs))
	for _, a := range attrs {
		putAttr(fields, h.prefix, a)
	}
	clone := *h
	clone.preset = slices.Clip(h.preset)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		clone.preset = append(clone.preset, presetField{key: k, val: fields[k]})
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

// putAttr flattens a into fields. Empty strings and nil values are skipped.
func putAttr(fields map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			putAttr(fields, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	key, val := normalizeValue(key, v)
	switch x := val.(type) {
	case nil:
		return
	case string:
		if x == "" {
			return
		}
	}
	fields[key] = val
}

func normalizeValue(key string, v slog.Value) (string, any) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String())
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds()
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u)
		}
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return key, nil
		case error:
			return key, x.Error()
		case time.Duration:
			return msKey(key), RoundMS(x).Milliseconds()
		case fmt.Stringer:
			return key, x.String()
		default:
			return key, fmt.Sprint(x)
		}
	}
	return key, v.Any()
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	default:
		return key + "_ms"
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// orderKeys lists the keys of fields present in order first, then the rest
// sorted.
func orderKeys(fields map[string]any, order []string) []string {
	keys := make([]string, 0, len(fields))
	listed := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := fields[k]; ok && !listed[k] {
			keys = append(keys, k)
		}
		listed[k] = true
	}
	var rest []string
	for k := range fields {
		if !listed[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func encodeJSON(fields map[string]any, keys []string) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range keys {
		data, err := json.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, data...)
	}
	return append(buf, '}'), nil
}

func encodeKV(fields map[string]any, keys []string) []byte {
	var buf []byte
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		s := fmt.Sprint(fields[k])
		if strings.IndexFunc(s, needsQuote) >= 0 {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
