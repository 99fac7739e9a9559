package combat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoesrpg/echoes-server/lib/stats"
)

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession(uuid.New(), uuid.New(), 3, 120, 100, 80, 1)

	assert.Equal(t, StatusPending, s.Status)
	assert.True(t, s.IsActive())

	s.Start()
	assert.Equal(t, StatusPlayerTurn, s.Status)
	assert.Equal(t, 1, s.TurnCount)
	assert.Equal(t, TurnPlayer, s.CurrentTurnEntity)

	s.NextTurn()
	assert.Equal(t, StatusMonsterTurn, s.Status)
	assert.Equal(t, TurnMonster, s.CurrentTurnEntity)
	assert.Equal(t, 1, s.TurnCount)

	s.NextTurn()
	assert.Equal(t, StatusPlayerTurn, s.Status)
	assert.Equal(t, 2, s.TurnCount)
}

func TestSession_TerminalStatesSetEndedAt(t *testing.T) {
	for _, tt := range []struct {
		name string
		end  func(*Session)
		want Status
	}{
		{"victory", (*Session).EndVictory, StatusVictory},
		{"defeat", (*Session).EndDefeat, StatusDefeat},
		{"abandoned", (*Session).Abandon, StatusAbandoned},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(uuid.New(), uuid.New(), 1, 100, 100, 50, 1)
			s.Start()
			tt.end(s)

			assert.Equal(t, tt.want, s.Status)
			assert.True(t, s.IsTerminal())
			require.NotNil(t, s.EndedAt)
		})
	}
}

func TestSnapshotStatuses_RoundTrip(t *testing.T) {
	e := NewEntity(uuid.New(), "Snap", stats.Block{MaxHP: 100})
	e.AddStatus("BURN", 3, 2, 5, nil)
	e.AddStatus("STAT_AD_+5", 2, 1, 1, &StatModifier{Stat: "AD", Delta: 5})

	snaps := SnapshotStatuses(e)
	require.Len(t, snaps, 2)
	assert.Equal(t, "BURN", snaps[0].Code)

	restored := NewEntity(uuid.New(), "Restored", stats.Block{MaxHP: 100})
	RestoreStatuses(restored, snaps)

	assert.Equal(t, e.StatusCodes(), restored.StatusCodes())
	assert.Equal(t, 2, restored.StatusStacks("BURN"))
	assert.Equal(t, 3, restored.Status("BURN").Remaining)
	require.NotNil(t, restored.Status("STAT_AD_+5").Modifier)
	assert.Equal(t, 5, restored.Status("STAT_AD_+5").Modifier.Delta)
}

func TestPlayerEntity_Echo(t *testing.T) {
	p := NewPlayerEntity(uuid.New(), "Hero", stats.Block{MaxHP: 100}, 100)

	assert.Equal(t, 95, p.AddEcho(95))
	assert.Equal(t, 5, p.AddEcho(50))
	assert.Equal(t, 100, p.EchoCurrent)

	assert.False(t, p.SpendEcho(101))
	assert.Equal(t, 100, p.EchoCurrent)
	assert.True(t, p.SpendEcho(100))
	assert.Equal(t, 0, p.EchoCurrent)

	p.SetEcho(1000)
	assert.Equal(t, 100, p.EchoCurrent)
	p.DrainEcho(250)
	assert.Equal(t, 0, p.EchoCurrent)
}

func TestPlayerEntity_Consumable(t *testing.T) {
	p := NewPlayerEntity(uuid.New(), "Hero", stats.Block{MaxHP: 100}, 100)
	p.ConsumableUses = 1

	assert.True(t, p.UseConsumable())
	assert.False(t, p.UseConsumable())
	assert.Equal(t, 0, p.ConsumableUses)
}
