// Package seed loads the starting world of a new game from YAML or Lua files
// and compiles it into a state.GameState.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pixil98/go-errors"

	"github.com/jwebster45206/manor-engine/pkg/state"
)

// DefaultName is the game name used for the built-in seed.
const DefaultName = "Shifting Manor"

//go:embed shifting_manor.yaml
var shiftingManor []byte

// Seed is an authored starting world. Rooms own their items and the
// connections leading out of them; a connection may lead to a room that is
// not defined yet.
type Seed struct {
	Name    string `yaml:"name"`
	Setting string `yaml:"setting"`
	Player  Player `yaml:"player"`
	Start   Start  `yaml:"start"`
	Rooms   []Room `yaml:"rooms"`
}

type Player struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Start places the player.
type Start struct {
	Room        string `yaml:"room"`
	Description string `yaml:"description"`
}

type Room struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Items       []Item       `yaml:"items"`
	Connections []Connection `yaml:"connections"`
}

// Item lies in the room that lists it. Location describes where.
type Item struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Location    string `yaml:"location"`
}

type Connection struct {
	To          string `yaml:"to"`
	Description string `yaml:"description"`
}

// Default returns the built-in Shifting Manor seed.
func Default() *Seed {
	s, err := LoadYAML(bytes.NewReader(shiftingManor))
	if err != nil {
		panic(fmt.Sprintf("embedded seed is invalid: %v", err))
	}
	return s
}

// Load reads a seed file, choosing the format by extension.
func Load(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".lua":
		return LoadLua(f, filepath.Base(path))
	default:
		return nil, fmt.Errorf("unsupported seed format %q (expected .yaml, .yml or .lua)", filepath.Ext(path))
	}
}

// LoadOrDefault loads the seed at path, or the built-in seed when path is
// empty.
func LoadOrDefault(path string) (*Seed, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return Load(path)
}

// GameName is the seed's name, or DefaultName when it has none.
func (s *Seed) GameName() string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	return DefaultName
}

// Validate reports every authoring mistake that Compile would either reject
// or silently carry into the world.
func (s *Seed) Validate() error {
	el := errors.NewErrorList()
	if strings.TrimSpace(s.Setting) == "" {
		el.Add(fmt.Errorf("setting is required"))
	}
	if strings.TrimSpace(s.Player.Name) == "" {
		el.Add(fmt.Errorf("player: name is required"))
	}
	if strings.TrimSpace(s.Start.Room) == "" {
		el.Add(fmt.Errorf("start: room is required"))
	}
	if len(s.Rooms) == 0 {
		el.Add(fmt.Errorf("at least one room is required"))
	}
	for i, r := range s.Rooms {
		if strings.TrimSpace(r.Name) == "" {
			el.Add(fmt.Errorf("rooms[%d]: name is required", i))
		}
		if strings.TrimSpace(r.Description) == "" {
			el.Add(fmt.Errorf("room %q: description is required", r.Name))
		}
		for j, it := range r.Items {
			if strings.TrimSpace(it.Name) == "" {
				el.Add(fmt.Errorf("room %q: items[%d]: name is required", r.Name, j))
			}
		}
		for j, c := range r.Connections {
			if strings.TrimSpace(c.To) == "" {
				el.Add(fmt.Errorf("room %q: connections[%d]: to is required", r.Name, j))
			}
		}
	}
	return el.Err()
}

// Compile turns the seed into a world graph and checks it for consistency.
func (s *Seed) Compile() (state.GameState, error) {
	if err := s.Validate(); err != nil {
		return state.GameState{}, err
	}
	gs := s.Build()
	if err := gs.Validate(); err != nil {
		return state.GameState{}, err
	}
	return gs, nil
}

// Build lays the seed out as a world graph without checking it.
func (s *Seed) Build() state.GameState {
	gs := state.GameState{
		Setting:         strings.TrimSpace(s.Setting),
		Player:          state.Player{Name: s.Player.Name, Description: s.Player.Description},
		Rooms:           make([]state.Room, 0, len(s.Rooms)),
		Items:           make([]state.Item, 0),
		ItemLocations:   make([]state.ItemLocation, 0),
		RoomConnections: make([]state.RoomConnection, 0),
		PlayerLocation:  state.PlayerLocation{Room: s.Start.Room, Description: s.Start.Description},
	}
	for _, r := range s.Rooms {
		gs.Rooms = append(gs.Rooms, state.Room{Name: r.Name, Description: r.Description})
		for _, it := range r.Items {
			gs.Items = append(gs.Items, state.Item{Name: it.Name, Description: it.Description})
			gs.ItemLocations = append(gs.ItemLocations, state.InRoom(it.Name, r.Name, it.Location))
		}
		for _, c := range r.Connections {
			conn := state.RoomConnection{Room1: r.Name, Room2: c.To, Description: c.Description}
			if !hasPair(gs.RoomConnections, conn) {
				gs.RoomConnections = append(gs.RoomConnections, conn)
			}
		}
	}
	return gs
}

// hasPair reports whether the undirected pair is already recorded. Both
// rooms of a pair may list the connection.
func hasPair(conns []state.RoomConnection, c state.RoomConnection) bool {
	for _, existing := range conns {
		if existing.SamePair(c) {
			return true
		}
	}
	return false
}
