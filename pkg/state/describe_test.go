package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameState_DescribeWorld(t *testing.T) {
	g := foyerGame(t)
	before := g.DeepCopy()

	doc := g.State.DescribeWorld()

	for _, want := range []string{
		"# Game State",
		"## Setting\n\nA quiet house.",
		"## Player",
		`The player's name is "Corvin". A cartographer.`,
		"## Inventory",
		`- "Lamp": Held in the left hand.`,
		"  - Description: A brass lamp.",
		"## Current Room",
		`The player is currently in "Foyer": Just inside the door.`,
		"A dusty entrance hall.",
		`- "Note": On the oak table.`,
		"## Connected Rooms",
		`- "Library": A pair of doors.`,
		`- "Cellar": A trapdoor.`,
	} {
		assert.Contains(t, doc, want)
	}

	// Sections appear in a fixed order.
	assert.Less(t, strings.Index(doc, "## Setting"), strings.Index(doc, "## Player"))
	assert.Less(t, strings.Index(doc, "## Inventory"), strings.Index(doc, "## Current Room"))
	assert.Less(t, strings.Index(doc, "## Current Room"), strings.Index(doc, "## Connected Rooms"))

	assert.Equal(t, before, g, "rendering must not mutate")
}

func TestGameState_DescribeFromOtherEndpoint(t *testing.T) {
	s := foyerGame(t).State
	s.PlayerLocation = PlayerLocation{Room: "Library", Description: "Among the shelves."}

	assert.Contains(t, s.DescribeConnections(), `- "Foyer": A pair of doors.`)
	assert.NotContains(t, s.DescribeConnections(), "Cellar")
	assert.Contains(t, s.DescribeLocation(), "There are no items in this room.")
}

func TestGameState_DescribeEmptyInventory(t *testing.T) {
	s := foyerGame(t).State
	s.ItemLocations[1] = InRoom("Lamp", "Library", "On a shelf.")

	assert.Equal(t, "The player inventory is empty.", s.DescribeInventory())
}
