package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Room is a named place in the world graph. Rooms are immutable once created.
type Room struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Item is a named, movable object. Items are immutable once created; only
// their ItemLocation changes.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RoomConnection is an undirected edge between two rooms, stored as a single
// record. Lookups must check both endpoints.
type RoomConnection struct {
	Room1       string `json:"room1"`
	Room2       string `json:"room2"`
	Description string `json:"description"`
}

// Touches reports whether the connection has name as one of its endpoints.
func (c RoomConnection) Touches(name string) bool {
	return c.Room1 == name || c.Room2 == name
}

// Other returns the endpoint opposite name. It returns "" if the connection
// does not touch name.
func (c RoomConnection) Other(name string) string {
	switch name {
	case c.Room1:
		return c.Room2
	case c.Room2:
		return c.Room1
	default:
		return ""
	}
}

// SamePair reports whether both connections link the same unordered pair.
func (c RoomConnection) SamePair(o RoomConnection) bool {
	return (c.Room1 == o.Room1 && c.Room2 == o.Room2) ||
		(c.Room1 == o.Room2 && c.Room2 == o.Room1)
}

// ItemLocationType discriminates the ItemLocation variants.
type ItemLocationType string

const (
	ItemLocationRoom      ItemLocationType = "room"
	ItemLocationInventory ItemLocationType = "inventory"
)

// ItemLocation is the current holder of an item: either a room or the
// player's inventory. Room is only set for room-located items.
type ItemLocation struct {
	Type        ItemLocationType `json:"type"`
	Item        string           `json:"item"`
	Room        string           `json:"room,omitempty"`
	Description string           `json:"description"`
}

// InRoom builds a room-located ItemLocation.
func InRoom(item, room, description string) ItemLocation {
	return ItemLocation{Type: ItemLocationRoom, Item: item, Room: room, Description: description}
}

// InInventory builds an inventory-located ItemLocation.
func InInventory(item, description string) ItemLocation {
	return ItemLocation{Type: ItemLocationInventory, Item: item, Description: description}
}

// PlayerLocation names the room the player is in and where in it they stand.
type PlayerLocation struct {
	Room        string `json:"room"`
	Description string `json:"description"`
}

type Player struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GameState is the world graph: everything the engine mutates while
// interpreting actions.
type GameState struct {
	Setting         string           `json:"setting"`
	Player          Player           `json:"player"`
	Rooms           []Room           `json:"rooms"`
	Items           []Item           `json:"items"`
	PlayerLocation  PlayerLocation   `json:"playerLocation"`
	ItemLocations   []ItemLocation   `json:"itemLocations"`
	RoomConnections []RoomConnection `json:"roomConnections"`
}

// Turn is one prompt cycle. Turns are appended to a Game and never edited.
type Turn struct {
	Prompt      string   `json:"prompt"`
	Actions     []Action `json:"actions"`
	Description string   `json:"description"`
}

type Metadata struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	CreationDateTime time.Time `json:"creationDateTime"`
}

// Game is the root aggregate. It owns its state and turn log by value.
type Game struct {
	Metadata Metadata  `json:"metadata"`
	State    GameState `json:"state"`
	Turns    []Turn    `json:"turns"`
}

// NewGame wraps a seed state in a fresh Game with a time-ordered ID.
func NewGame(name string, s GameState) (*Game, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	g := &Game{
		Metadata: Metadata{
			ID:               id,
			Name:             name,
			CreationDateTime: time.Now().UTC(),
		},
		State: s,
		Turns: make([]Turn, 0),
	}
	return g.DeepCopy(), nil
}

// DeepCopy returns a structural copy of g that shares no slices with it.
func (g *Game) DeepCopy() *Game {
	if g == nil {
		return nil
	}
	cp := &Game{
		Metadata: g.Metadata,
		State:    g.State.DeepCopy(),
		Turns:    slices.Clone(g.Turns),
	}
	for i, t := range cp.Turns {
		cp.Turns[i] = Turn{
			Prompt:      t.Prompt,
			Actions:     slices.Clone(t.Actions),
			Description: t.Description,
		}
	}
	return cp
}

// DeepCopy returns a copy of s that shares no slices with it.
func (s GameState) DeepCopy() GameState {
	return GameState{
		Setting:         s.Setting,
		Player:          s.Player,
		Rooms:           slices.Clone(s.Rooms),
		Items:           slices.Clone(s.Items),
		PlayerLocation:  s.PlayerLocation,
		ItemLocations:   slices.Clone(s.ItemLocations),
		RoomConnections: slices.Clone(s.RoomConnections),
	}
}

// Restore overwrites g with the contents of snapshot. The snapshot is copied
// so it can be reused.
func (g *Game) Restore(snapshot *Game) {
	*g = *snapshot.DeepCopy()
}
