package state

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Violations walks the whole world graph and returns one ConsistencyFault
// per broken invariant. Connections may name one room that has not been
// generated yet; a connection with neither endpoint generated is a fault.
func (s *GameState) Violations() []*ConsistencyFault {
	var out []*ConsistencyFault
	add := func(check, format string, args ...any) {
		out = append(out, &ConsistencyFault{Check: check, Message: fmt.Sprintf(format, args...)})
	}

	rooms := make(map[string]int, len(s.Rooms))
	for _, r := range s.Rooms {
		rooms[r.Name]++
	}
	for name, n := range rooms {
		if n > 1 {
			add(CheckUniqueNames, "room %q is defined %d times", name, n)
		}
	}

	items := make(map[string]int, len(s.Items))
	for _, it := range s.Items {
		items[it.Name]++
	}
	for name, n := range items {
		if n > 1 {
			add(CheckUniqueNames, "item %q is defined %d times", name, n)
		}
	}

	connected := make(map[string]bool, len(s.Rooms))
	for _, c := range s.RoomConnections {
		_, ok1 := rooms[c.Room1]
		_, ok2 := rooms[c.Room2]
		switch {
		case c.Room1 == c.Room2:
			add(CheckConnectionEndpoints, "connection loops room %q onto itself", c.Room1)
		case !ok1 && !ok2:
			add(CheckConnectionEndpoints, "connection %q <-> %q references no existing room", c.Room1, c.Room2)
		}
		connected[c.Room1] = true
		connected[c.Room2] = true
	}
	for _, r := range s.Rooms {
		if !connected[r.Name] {
			add(CheckRoomConnected, "room %q has no connections", r.Name)
		}
	}

	records := make(map[string]int, len(s.ItemLocations))
	for _, loc := range s.ItemLocations {
		records[loc.Item]++
		if _, ok := items[loc.Item]; !ok {
			add(CheckItemLocation, "location recorded for unknown item %q", loc.Item)
		}
		switch loc.Type {
		case ItemLocationInventory:
		case ItemLocationRoom:
			if _, ok := rooms[loc.Room]; !ok {
				add(CheckItemLocation, "item %q is in unknown room %q", loc.Item, loc.Room)
			}
		default:
			add(CheckItemLocation, "item %q has unknown location type %q", loc.Item, loc.Type)
		}
	}
	for _, it := range s.Items {
		if n := records[it.Name]; n != 1 {
			add(CheckItemLocation, "item %q has %d location records", it.Name, n)
		}
	}
	if len(s.ItemLocations) != len(s.Items) {
		add(CheckLocationCount, "%d location records for %d items", len(s.ItemLocations), len(s.Items))
	}

	if _, ok := rooms[s.PlayerLocation.Room]; !ok {
		add(CheckPlayerLocation, "player is in unknown room %q", s.PlayerLocation.Room)
	}

	return out
}

// Validate returns a single ConsistencyFault summarizing every violation, or
// nil when the world graph is sound.
func (s *GameState) Validate() error {
	el := errors.NewErrorList()
	for _, v := range s.Violations() {
		el.Add(v)
	}
	return consistencyErr(el.Err())
}

// Validate checks the world graph and the shape of every recorded turn.
func (g *Game) Validate() error {
	el := errors.NewErrorList()
	for _, v := range g.State.Violations() {
		el.Add(v)
	}
	for i, t := range g.Turns {
		for j, a := range t.Actions {
			if err := a.Validate(); err != nil {
				el.Add(fmt.Errorf("turn %d action %d: %w", i, j, err))
			}
		}
	}
	return consistencyErr(el.Err())
}

// consistencyErr makes collected problems match ErrConsistency. A lone
// ConsistencyFault is returned as is.
func consistencyErr(err error) error {
	if err == nil {
		return nil
	}
	if cf, ok := err.(*ConsistencyFault); ok {
		return cf
	}
	return &ConsistencyFault{Message: err.Error()}
}
