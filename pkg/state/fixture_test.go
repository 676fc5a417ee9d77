package state

import (
	"testing"

	"github.com/google/uuid"
)

// foyerGame returns a small world: Foyer <-> Library, Foyer <-> Cellar
// (frontier), a Note on a table in the Foyer and a Lamp in the inventory.
func foyerGame(t *testing.T) *Game {
	t.Helper()
	return &Game{
		Metadata: Metadata{ID: uuid.New(), Name: "test"},
		State: GameState{
			Setting: "A quiet house.",
			Player:  Player{Name: "Corvin", Description: "A cartographer."},
			Rooms: []Room{
				{Name: "Foyer", Description: "A dusty entrance hall."},
				{Name: "Library", Description: "Shelves to the ceiling."},
			},
			Items: []Item{
				{Name: "Note", Description: "A folded note."},
				{Name: "Lamp", Description: "A brass lamp."},
			},
			PlayerLocation: PlayerLocation{Room: "Foyer", Description: "Just inside the door."},
			ItemLocations: []ItemLocation{
				InRoom("Note", "Foyer", "On the oak table."),
				InInventory("Lamp", "Held in the left hand."),
			},
			RoomConnections: []RoomConnection{
				{Room1: "Foyer", Room2: "Library", Description: "A pair of doors."},
				{Room1: "Foyer", Room2: "Cellar", Description: "A trapdoor."},
			},
		},
		Turns: []Turn{},
	}
}
