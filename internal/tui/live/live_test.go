package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bookload/internal/runner"
)

func TestPercentFollowsPhase(t *testing.T) {
	m := NewModel(10 * time.Second)
	m, _ = m.Update(runner.StatsSnapshot{Phase: runner.PhaseUsers, Elapsed: 5 * time.Second})
	assert.InDelta(t, 0.5, m.Percent(), 0.001)

	m, _ = m.Update(runner.StatsSnapshot{Phase: runner.PhaseUsers, Elapsed: 20 * time.Second})
	assert.Equal(t, 1.0, m.Percent())

	m, _ = m.Update(runner.StatsSnapshot{Phase: runner.PhaseListener, Elapsed: time.Second})
	assert.Equal(t, 1.0, m.Percent())
}

func TestViewShowsCounters(t *testing.T) {
	m := NewModel(10 * time.Second)
	m, _ = m.Update(runner.StatsSnapshot{
		Phase:       runner.PhaseUsers,
		Requests:    40,
		Fail:        4,
		ErrorRate:   10,
		ActiveUsers: 3,
		P95Ms:       12.5,
	})

	v := m.View()
	assert.Contains(t, v, "SUBMITTED: 40")
	assert.Contains(t, v, "ERR: 10.00%")
	assert.Contains(t, v, "P95: 12.50 ms")
	assert.Len(t, m.OpsLine.Data, 1)
}
