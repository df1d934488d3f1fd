package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct{ acquired, idle, total, max int32 }

func (f fakeStats) AcquiredConns() int32 { return f.acquired }
func (f fakeStats) IdleConns() int32     { return f.idle }
func (f fakeStats) TotalConns() int32    { return f.total }
func (f fakeStats) MaxConns() int32      { return f.max }

func TestRegisterPoolReadsStatsOnScrape(t *testing.T) {
	reg := prometheus.NewRegistry()
	cur := fakeStats{acquired: 1, idle: 2, total: 3, max: 20}
	RegisterPool(reg, func() PoolStats { return cur })

	values := func() map[string]float64 {
		families, err := reg.Gather()
		require.NoError(t, err)
		out := map[string]float64{}
		for _, f := range families {
			out[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
		}
		return out
	}

	got := values()
	assert.Equal(t, 1.0, got["classtrade_db_pool_acquired_conns"])
	assert.Equal(t, 20.0, got["classtrade_db_pool_max_conns"])

	cur.acquired = 7
	assert.Equal(t, 7.0, values()["classtrade_db_pool_acquired_conns"])
}
