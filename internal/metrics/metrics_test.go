package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("runboard", reg)

	m.Loads.WithLabelValues("ready").Inc()
	m.Mutations.WithLabelValues("assign", "failed").Add(2)
	m.Unassigned.Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues("ready")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Mutations.WithLabelValues("assign", "failed")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["runboard_board_loads_total"])
	assert.True(t, names["runboard_mutations_total"])
	assert.True(t, names["runboard_board_unassigned_flights"])

	// a second set on a fresh registry does not collide
	assert.NotPanics(t, func() { New("runboard", prometheus.NewRegistry()) })
}
