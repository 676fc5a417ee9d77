package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateRoom(t *testing.T) {
	tests := []struct {
		name        string
		room        Room
		connections []RoomConnection
		wantErr     error
		wantConns   int
	}{
		{
			name: "materializes frontier room",
			room: Room{Name: "Cellar", Description: "Damp stone."},
			connections: []RoomConnection{
				{Room1: "Cellar", Room2: "Wine Vault", Description: "An arch."},
				{Room1: "Well", Room2: "Cellar", Description: "A rope."},
			},
			wantConns: 4,
		},
		{
			name: "skips pair already recorded",
			room: Room{Name: "Cellar", Description: "Damp stone."},
			connections: []RoomConnection{
				{Room1: "Cellar", Room2: "Foyer", Description: "Stairs up."},
			},
			wantConns: 2,
		},
		{
			name: "skips pair repeated in input",
			room: Room{Name: "Cellar"},
			connections: []RoomConnection{
				{Room1: "Cellar", Room2: "Vault"},
				{Room1: "Vault", Room2: "Cellar"},
			},
			wantConns: 3,
		},
		{
			name:    "duplicate room",
			room:    Room{Name: "Library"},
			wantErr: ErrDuplicateEntity,
		},
		{
			name: "connection not touching room",
			room: Room{Name: "Cellar"},
			connections: []RoomConnection{
				{Room1: "Library", Room2: "Study"},
			},
			wantErr: ErrBug,
		},
		{
			name: "self loop",
			room: Room{Name: "Cellar"},
			connections: []RoomConnection{
				{Room1: "Cellar", Room2: "Cellar"},
			},
			wantErr: ErrBug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := foyerGame(t)
			before := g.DeepCopy()
			m := NewManager(g)

			err := m.CreateRoom(tt.room, tt.connections)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, g, "failed create must not change state")
				return
			}
			require.NoError(t, err)
			assert.Len(t, g.State.RoomConnections, tt.wantConns)
			room, err := g.State.GetRoom(tt.room.Name)
			require.NoError(t, err)
			assert.Equal(t, tt.room, room)
			assert.NoError(t, g.State.Validate())
		})
	}
}

func TestManager_CreateRoomKeepsExistingDescription(t *testing.T) {
	g := foyerGame(t)
	m := NewManager(g)

	require.NoError(t, m.CreateRoom(Room{Name: "Cellar"}, []RoomConnection{
		{Room1: "Cellar", Room2: "Foyer", Description: "New stairs."},
	}))

	conns := g.State.GetRoomConnections("Cellar")
	require.Len(t, conns, 1)
	assert.Equal(t, "A trapdoor.", conns[0].Description)
}

func TestManager_CreateRoomWithoutConnections(t *testing.T) {
	g := foyerGame(t)
	m := NewManager(g)

	// The manager accepts it; the validator flags it.
	require.NoError(t, m.CreateRoom(Room{Name: "Attic"}, nil))

	exists, err := g.State.RoomExists("Attic")
	assert.True(t, exists)
	assert.ErrorIs(t, err, ErrConsistency)

	err = m.SetPlayerLocation(PlayerLocation{Room: "Attic"})
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Equal(t, "Foyer", g.State.PlayerLocation.Room)
}

func TestManager_CreateItem(t *testing.T) {
	tests := []struct {
		name     string
		item     Item
		location ItemLocation
		wantErr  error
	}{
		{
			name:     "in room",
			item:     Item{Name: "Key", Description: "Iron."},
			location: InRoom("Key", "Library", "Under a book."),
		},
		{
			name:     "in inventory",
			item:     Item{Name: "Key"},
			location: InInventory("Key", "In a pocket."),
		},
		{
			name:     "location item filled in",
			item:     Item{Name: "Key"},
			location: ItemLocation{Type: ItemLocationInventory, Description: "In a pocket."},
		},
		{
			name:     "duplicate",
			item:     Item{Name: "Note"},
			location: InInventory("Note", ""),
			wantErr:  ErrDuplicateEntity,
		},
		{
			name:     "unknown room",
			item:     Item{Name: "Key"},
			location: InRoom("Key", "Kitchen", ""),
			wantErr:  ErrNotFound,
		},
		{
			name:     "frontier room",
			item:     Item{Name: "Key"},
			location: InRoom("Key", "Cellar", ""),
			wantErr:  ErrNotFound,
		},
		{
			name:     "mismatched item",
			item:     Item{Name: "Key"},
			location: InInventory("Lock", ""),
			wantErr:  ErrBug,
		},
		{
			name:     "unknown location type",
			item:     Item{Name: "Key"},
			location: ItemLocation{Type: "pocket", Item: "Key"},
			wantErr:  ErrBug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := foyerGame(t)
			before := g.DeepCopy()
			m := NewManager(g)

			err := m.CreateItem(tt.item, tt.location)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, g)
				return
			}
			require.NoError(t, err)
			loc, err := g.State.GetItemLocation(tt.item.Name)
			require.NoError(t, err)
			assert.Equal(t, tt.item.Name, loc.Item)
			assert.Equal(t, tt.location.Type, loc.Type)
			assert.Len(t, g.State.ItemLocations, len(g.State.Items))
			assert.NoError(t, g.State.Validate())
		})
	}
}

func TestManager_SetPlayerLocation(t *testing.T) {
	g := foyerGame(t)
	m := NewManager(g)

	require.NoError(t, m.SetPlayerLocation(PlayerLocation{Room: "Library", Description: "By the fire."}))
	assert.Equal(t, PlayerLocation{Room: "Library", Description: "By the fire."}, g.State.PlayerLocation)

	err := m.SetPlayerLocation(PlayerLocation{Room: "Kitchen"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsGameFault(err))
	assert.Equal(t, "Library", g.State.PlayerLocation.Room)
}

func TestManager_SetItemLocation(t *testing.T) {
	tests := []struct {
		name    string
		item    string
		loc     ItemLocation
		wantErr error
	}{
		{name: "room to inventory", item: "Note", loc: InInventory("Note", "Pocket.")},
		{name: "inventory to room", item: "Lamp", loc: InRoom("Lamp", "Foyer", "On the floor.")},
		{name: "room to other room", item: "Note", loc: InRoom("Note", "Library", "Shelved.")},
		{name: "inventory again", item: "Lamp", loc: InInventory("Lamp", "Other hand."), wantErr: ErrNoOp},
		{name: "same room again", item: "Note", loc: InRoom("Note", "Foyer", "Still there."), wantErr: ErrNoOp},
		{name: "unknown item", item: "Sword", loc: InInventory("Sword", ""), wantErr: ErrNotFound},
		{name: "unknown room", item: "Note", loc: InRoom("Note", "Kitchen", ""), wantErr: ErrNotFound},
		{name: "mismatched item", item: "Note", loc: InInventory("Lamp", ""), wantErr: ErrBug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := foyerGame(t)
			before := g.DeepCopy()
			m := NewManager(g)

			err := m.SetItemLocation(tt.item, tt.loc)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, g)
				return
			}
			require.NoError(t, err)
			loc, err := g.State.GetItemLocation(tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.loc, loc)
			assert.Len(t, g.State.ItemLocations, len(g.State.Items))
			assert.NoError(t, g.State.Validate())
		})
	}
}

func TestManager_SetItemLocationTwiceIsNoOp(t *testing.T) {
	g := foyerGame(t)
	m := NewManager(g)

	require.NoError(t, m.SetItemLocation("Note", InInventory("Note", "Pocket.")))
	after := g.DeepCopy()

	err := m.SetItemLocation("Note", InInventory("Note", "Other pocket."))
	require.ErrorIs(t, err, ErrNoOp)
	assert.Equal(t, after, g)
}

// Every accepted mutation in a long sequence keeps the world graph valid and
// the item/location bijection intact.
func TestManager_InvariantPreservation(t *testing.T) {
	g := foyerGame(t)
	m := NewManager(g)

	steps := []func() error{
		func() error {
			return m.CreateRoom(Room{Name: "Cellar"}, []RoomConnection{{Room1: "Cellar", Room2: "Vault"}})
		},
		func() error { return m.CreateItem(Item{Name: "Bottle"}, InRoom("Bottle", "Cellar", "On a rack.")) },
		func() error { return m.SetPlayerLocation(PlayerLocation{Room: "Cellar"}) },
		func() error { return m.SetItemLocation("Bottle", InInventory("Bottle", "Under an arm.")) },
		func() error { return m.SetItemLocation("Lamp", InRoom("Lamp", "Cellar", "On the floor.")) },
		func() error {
			return m.CreateRoom(Room{Name: "Vault"}, []RoomConnection{{Room1: "Vault", Room2: "Crypt"}})
		},
		func() error { return m.SetPlayerLocation(PlayerLocation{Room: "Vault"}) },
		func() error { return m.SetItemLocation("Bottle", InRoom("Bottle", "Vault", "Set down.")) },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		require.NoError(t, g.State.Validate(), "step %d", i)
		require.Len(t, g.State.ItemLocations, len(g.State.Items), "step %d", i)
		for _, it := range g.State.Items {
			_, err := g.State.GetItemLocation(it.Name)
			require.NoError(t, err)
		}
	}
}

func TestManager_AddTurn(t *testing.T) {
	g := foyerGame(t)
	m := NewManager(g)

	m.AddTurn(Turn{Prompt: "wait"})
	m.AddTurn(Turn{Prompt: "look", Actions: []Action{Inspect("Corvin looks.", "Dust.")}})

	require.Len(t, g.Turns, 2)
	assert.Equal(t, "wait", g.Turns[0].Prompt)
	assert.Empty(t, g.Turns[0].Actions)
}

func TestFaultClassification(t *testing.T) {
	g := foyerGame(t)
	m := NewManager(g)

	err := m.SetPlayerLocation(PlayerLocation{Room: "Kitchen"})
	var gf *GameFault
	require.True(t, errors.As(err, &gf))
	assert.Equal(t, ErrNotFound, gf.Kind)
	assert.False(t, IsFatal(err))

	err = m.CreateRoom(Room{Name: "Study"}, []RoomConnection{{Room1: "A", Room2: "B"}})
	assert.True(t, IsFatal(err))
	assert.False(t, IsGameFault(err))
}
