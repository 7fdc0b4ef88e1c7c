package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveUpdate("message", true)
		c.ObserveTurn("main_menu", "ok", time.Millisecond)
		c.ObserveStore("ping", "ok")
		c.ObserveReload(nil)
		c.ObserveSend("turn.replies", 1, nil)
		c.GaugeFunc("x", "x", func() float64 { return 1 })
	})
	assert.Nil(t, c.Registry())
}

func TestCounters(t *testing.T) {
	c := New()
	c.ObserveUpdate("callback", true)
	c.ObserveUpdate("callback", false)
	c.ObserveUpdate("callback", false)
	c.ObserveTurn("quiz_question", "fault", 5*time.Millisecond)
	c.ObserveStore("record_event", "rejected")
	c.ObserveReload(errors.New("bad yaml"))
	c.ObserveSend("turn.replies", 3, errors.New("timeout"))
	c.ObserveSend("turn.replies", 1, nil)

	assert.InDelta(t, 2, testutil.ToFloat64(c.updates.WithLabelValues("callback", "refused")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.updates.WithLabelValues("callback", "admitted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.turns.WithLabelValues("quiz_question", "fault")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.storeOps.WithLabelValues("record_event", "rejected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.reloads.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.sends.WithLabelValues("turn.replies", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.sends.WithLabelValues("turn.replies", "ok")), 0)
}

func TestHandlerServesRegistry(t *testing.T) {
	c := New()
	c.GaugeFunc("sessions", "Live sessions.", func() float64 { return 3 })
	c.ObserveTurn("main_menu", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pharmtutor_turns_total{outcome="ok",state="main_menu"} 1`)
	assert.Contains(t, string(body), "pharmtutor_sessions 3")
}
