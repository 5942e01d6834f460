package metric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledIsNilSafe(t *testing.T) {
	m := New(Config{})
	require.Nil(t, m)
	m.CommitInc()
	m.RollbackInc()
	m.WriteErrorInc()
	m.ObserveCommitDuration(time.Millisecond)
	m.SetActiveVersions(3)
	m.NotifyPublishedInc()
	m.NotifyDroppedInc()
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New(Config{Enabled: true})
	require.NotNil(t, m)
	m.CommitInc()
	m.CommitInc()
	m.RollbackInc()
	m.SetActiveVersions(2)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range families {
		if len(mf.GetMetric()) == 1 {
			metric := mf.GetMetric()[0]
			switch {
			case metric.GetCounter() != nil:
				got[mf.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				got[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), got["cryo_db_commits_total"])
	assert.Equal(t, float64(1), got["cryo_db_rollbacks_total"])
	assert.Equal(t, float64(2), got["cryo_db_active_versions"])
}
