package state

// Names of the invariants reported by ConsistencyFault.Check.
const (
	CheckConnectionEndpoints = "connection-endpoints"
	CheckRoomConnected       = "room-connected"
	CheckItemLocation        = "item-location"
	CheckPlayerLocation      = "player-location"
	CheckUniqueNames         = "unique-names"
	CheckLocationCount       = "location-count"
)

// RoomExists reports whether a room called name has been created. A room
// that exists without any connection is a ConsistencyFault.
func (s *GameState) RoomExists(name string) (bool, error) {
	if s.roomIndex(name) < 0 {
		return false, nil
	}
	for _, c := range s.RoomConnections {
		if c.Touches(name) {
			return true, nil
		}
	}
	return true, inconsistent(CheckRoomConnected, "room %q has no connections", name)
}

// ItemExists reports whether an item called name has been created. An item
// without exactly one location record, or a location record without an item,
// is a ConsistencyFault.
func (s *GameState) ItemExists(name string) (bool, error) {
	exists := s.itemIndex(name) >= 0
	records := 0
	for _, loc := range s.ItemLocations {
		if loc.Item == name {
			records++
		}
	}
	switch {
	case !exists && records == 0:
		return false, nil
	case !exists:
		return false, inconsistent(CheckItemLocation, "location recorded for unknown item %q", name)
	case records != 1:
		return true, inconsistent(CheckItemLocation, "item %q has %d location records", name, records)
	default:
		return true, nil
	}
}

func (s *GameState) GetRoom(name string) (Room, error) {
	exists, err := s.RoomExists(name)
	if err != nil {
		return Room{}, err
	}
	if !exists {
		return Room{}, notFound("The room %q does not exist.", name)
	}
	return s.Rooms[s.roomIndex(name)], nil
}

func (s *GameState) GetItem(name string) (Item, error) {
	exists, err := s.ItemExists(name)
	if err != nil {
		return Item{}, err
	}
	if !exists {
		return Item{}, notFound("The item %q does not exist.", name)
	}
	return s.Items[s.itemIndex(name)], nil
}

// GetRoomConnections returns every connection touching name, in insertion
// order. Frontier endpoints that have not been generated yet are included.
func (s *GameState) GetRoomConnections(name string) []RoomConnection {
	var out []RoomConnection
	for _, c := range s.RoomConnections {
		if c.Touches(name) {
			out = append(out, c)
		}
	}
	return out
}

// ConnectedRooms returns the names on the far side of each connection
// touching name.
func (s *GameState) ConnectedRooms(name string) []string {
	var out []string
	for _, c := range s.GetRoomConnections(name) {
		out = append(out, c.Other(name))
	}
	return out
}

// AreConnected reports whether a connection links a and b.
func (s *GameState) AreConnected(a, b string) bool {
	pair := RoomConnection{Room1: a, Room2: b}
	for _, c := range s.RoomConnections {
		if c.SamePair(pair) {
			return true
		}
	}
	return false
}

func (s *GameState) GetItemLocation(name string) (ItemLocation, error) {
	exists, err := s.ItemExists(name)
	if err != nil {
		return ItemLocation{}, err
	}
	if !exists {
		return ItemLocation{}, notFound("The item %q does not exist.", name)
	}
	return s.ItemLocations[s.locationIndex(name)], nil
}

// GetItemsInRoom returns the location records of items lying in room.
func (s *GameState) GetItemsInRoom(room string) []ItemLocation {
	var out []ItemLocation
	for _, loc := range s.ItemLocations {
		if loc.Type == ItemLocationRoom && loc.Room == room {
			out = append(out, loc)
		}
	}
	return out
}

// GetInventory returns the location records of items the player carries.
func (s *GameState) GetInventory() []ItemLocation {
	var out []ItemLocation
	for _, loc := range s.ItemLocations {
		if loc.Type == ItemLocationInventory {
			out = append(out, loc)
		}
	}
	return out
}

func (s *GameState) roomIndex(name string) int {
	for i, r := range s.Rooms {
		if r.Name == name {
			return i
		}
	}
	return -1
}

func (s *GameState) itemIndex(name string) int {
	for i, it := range s.Items {
		if it.Name == name {
			return i
		}
	}
	return -1
}

func (s *GameState) locationIndex(item string) int {
	for i, loc := range s.ItemLocations {
		if loc.Item == item {
			return i
		}
	}
	return -1
}
