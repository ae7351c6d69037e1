package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/admission-go/internal/metrics"
	"github.com/serroba/admission-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSizer int

func (f fixedSizer) Len() int { return int(f) }

func TestCollector(t *testing.T) {
	t.Run("counts decisions by scope and outcome", func(t *testing.T) {
		c := metrics.NewCollector(nil)

		c.ObserveDecision(ratelimit.ScopeIP, ratelimit.Decision{Allowed: true})
		c.ObserveDecision(ratelimit.ScopeIP, ratelimit.Decision{Allowed: true})
		c.ObserveDecision(ratelimit.ScopeUser, ratelimit.Decision{Reason: ratelimit.ReasonBurst})

		expected := `
# HELP admission_decisions_total Admission decisions by key scope and outcome.
# TYPE admission_decisions_total counter
admission_decisions_total{outcome="allowed",scope="ip"} 2
admission_decisions_total{outcome="denied_burst",scope="user"} 1
`
		err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "admission_decisions_total")
		require.NoError(t, err)
	})

	t.Run("adds evictions", func(t *testing.T) {
		c := metrics.NewCollector(nil)

		c.ObserveEvictions(3)
		c.ObserveEvictions(0)
		c.ObserveEvictions(2)

		expected := `
# HELP admission_evicted_records_total Idle quota records removed by the sweeper.
# TYPE admission_evicted_records_total counter
admission_evicted_records_total 5
`
		err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "admission_evicted_records_total")
		require.NoError(t, err)
	})

	t.Run("serves tracked keys gauge", func(t *testing.T) {
		c := metrics.NewCollector(fixedSizer(7))

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "admission_tracked_keys 7")
	})
}
