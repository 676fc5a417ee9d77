package state

// Manager is the only code allowed to mutate a Game. Each method either
// applies its change completely or returns an error and leaves the game
// untouched.
type Manager struct {
	game *Game
}

func NewManager(g *Game) *Manager {
	return &Manager{game: g}
}

// Game returns the game being managed.
func (m *Manager) Game() *Game {
	return m.game
}

// State returns the world graph of the managed game.
func (m *Manager) State() *GameState {
	return &m.game.State
}

// CreateRoom inserts room and the given connections. Every connection must
// have room.Name as an endpoint. Connections whose unordered pair is already
// recorded are skipped; the existing description wins. No reverse records
// are inserted.
func (m *Manager) CreateRoom(room Room, connections []RoomConnection) error {
	s := m.State()
	exists, err := s.RoomExists(room.Name)
	if err != nil {
		return err
	}
	if exists {
		return duplicate("The room %q already exists.", room.Name)
	}
	if room.Name == "" {
		return bug("room name is empty")
	}

	var add []RoomConnection
	for _, c := range connections {
		if !c.Touches(room.Name) {
			return bug("connection %q <-> %q does not touch new room %q", c.Room1, c.Room2, room.Name)
		}
		if c.Room1 == c.Room2 {
			return bug("connection loops room %q onto itself", room.Name)
		}
		if s.AreConnected(c.Room1, c.Room2) || containsPair(add, c) {
			continue
		}
		add = append(add, c)
	}

	s.Rooms = append(s.Rooms, room)
	s.RoomConnections = append(s.RoomConnections, add...)
	return nil
}

// CreateItem inserts item together with its single location record.
func (m *Manager) CreateItem(item Item, location ItemLocation) error {
	s := m.State()
	exists, err := s.ItemExists(item.Name)
	if err != nil {
		return err
	}
	if exists {
		return duplicate("The item %q already exists.", item.Name)
	}
	if item.Name == "" {
		return bug("item name is empty")
	}
	if location.Item == "" {
		location.Item = item.Name
	}
	if location.Item != item.Name {
		return bug("location for %q names item %q", item.Name, location.Item)
	}
	if err := m.checkTarget(location); err != nil {
		return err
	}

	s.Items = append(s.Items, item)
	s.ItemLocations = append(s.ItemLocations, location)
	return nil
}

// SetPlayerLocation replaces the player's location.
func (m *Manager) SetPlayerLocation(loc PlayerLocation) error {
	exists, err := m.State().RoomExists(loc.Room)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("The room %q does not exist.", loc.Room)
	}
	m.game.State.PlayerLocation = loc
	return nil
}

// SetItemLocation replaces the single location record of item. Moving an
// item to where it already is fails with a NoOp fault.
func (m *Manager) SetItemLocation(item string, loc ItemLocation) error {
	s := m.State()
	current, err := s.GetItemLocation(item)
	if err != nil {
		return err
	}
	if loc.Item == "" {
		loc.Item = item
	}
	if loc.Item != item {
		return bug("location for %q names item %q", item, loc.Item)
	}
	if err := m.checkTarget(loc); err != nil {
		return err
	}

	switch loc.Type {
	case ItemLocationInventory:
		if current.Type == ItemLocationInventory {
			return noOp("The item %q is already in the player's inventory.", item)
		}
	case ItemLocationRoom:
		if current.Type == ItemLocationRoom && current.Room == loc.Room {
			return noOp("The item %q is already in the room %q.", item, loc.Room)
		}
	}

	s.ItemLocations[s.locationIndex(item)] = loc
	return nil
}

// AddTurn appends turn to the log.
func (m *Manager) AddTurn(turn Turn) {
	m.game.Turns = append(m.game.Turns, turn)
}

func (m *Manager) checkTarget(loc ItemLocation) error {
	switch loc.Type {
	case ItemLocationInventory:
		return nil
	case ItemLocationRoom:
		exists, err := m.State().RoomExists(loc.Room)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("The room %q does not exist.", loc.Room)
		}
		return nil
	default:
		return bug("unknown item location type %q", loc.Type)
	}
}

func containsPair(conns []RoomConnection, c RoomConnection) bool {
	for _, o := range conns {
		if o.SamePair(c) {
			return true
		}
	}
	return false
}
