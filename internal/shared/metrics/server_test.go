package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestRouter_Healthz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	rec := httptest.NewRecorder()
	Router(map[string]HealthFunc{"postgres": ok, "redis": ok}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	Router(map[string]HealthFunc{"redis": down}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}

func TestScan_CountersAndNilSafety(t *testing.T) {
	m := NewScan(prometheus.NewRegistry())
	m.OnError("ocr")
	m.OnError("ocr")
	Inc(m.Completed)

	assert.Equal(t, 2.0, counterValue(t, m.ErrorsBy.WithLabelValues("ocr")))
	assert.Equal(t, 1.0, counterValue(t, m.Completed))

	var none *Scan
	none.OnError("x")
	Inc(nil)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return out.GetCounter().GetValue()
}
