package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameState_LegalActions(t *testing.T) {
	s := foyerGame(t).State

	la := s.LegalActions()
	assert.Equal(t, []string{"Note"}, la.TakeableItems)
	assert.Equal(t, []string{"Lamp"}, la.DroppableItems)
	assert.Equal(t, []string{"Library", "Cellar"}, la.ReachableRooms)
	assert.Equal(t, []ActionType{ActionDropItem, ActionMove, ActionTakeItem, ActionInspect, ActionPass}, la.Types)

	assert.True(t, la.Allows(TakeItem("Note", "", "")))
	assert.False(t, la.Allows(TakeItem("Lamp", "", "")))
	assert.True(t, la.Allows(DropItem("Lamp", "", "")))
	assert.True(t, la.Allows(Move("Cellar", "", "")))
	assert.False(t, la.Allows(Move("Kitchen", "", "")))
	assert.True(t, la.Allows(Inspect("", "")))
	assert.False(t, la.Allows(Action{Type: "PlayerDance"}))
}

func TestGameState_LegalActionsIsolatedRoom(t *testing.T) {
	s := GameState{
		Rooms:          []Room{{Name: "Cell"}},
		PlayerLocation: PlayerLocation{Room: "Cell"},
	}

	la := s.LegalActions()
	assert.Empty(t, la.TakeableItems)
	assert.Empty(t, la.DroppableItems)
	assert.Empty(t, la.ReachableRooms)
	assert.Equal(t, []ActionType{ActionInspect, ActionPass}, la.Types)
}
