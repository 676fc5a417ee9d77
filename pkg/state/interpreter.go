package state

import (
	"log/slog"
)

// Interpreter applies structured actions to a game through its Manager.
// Informational actions change nothing; stateful actions make exactly one
// Manager call. A failed action leaves the game unchanged.
type Interpreter struct {
	manager *Manager
	logger  *slog.Logger
}

// NewInterpreter creates an interpreter for the game behind m. A nil logger
// discards output.
func NewInterpreter(m *Manager, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Interpreter{manager: m, logger: logger}
}

// InterpretAction applies a single action to g.
func InterpretAction(g *Game, a Action) error {
	return NewInterpreter(NewManager(g), nil).Apply(a)
}

// Apply validates a against the current world graph and applies it.
func (in *Interpreter) Apply(a Action) error {
	var err error
	switch a.Type {
	case ActionTakeItem:
		err = in.takeItem(a)
	case ActionDropItem:
		err = in.dropItem(a)
	case ActionMove:
		err = in.move(a)
	case ActionInspect, ActionPass:
	default:
		err = bug("unknown action type %q", a.Type)
	}

	if err != nil {
		in.logger.Debug("Action rejected", "action", a.Type, "error", err)
		return err
	}
	in.logger.Debug("Action applied", "action", a.Type, "item", a.Item, "room", a.Room)
	return nil
}

// takeItem requires the item to lie in the player's current room.
func (in *Interpreter) takeItem(a Action) error {
	s := in.manager.State()
	loc, err := s.GetItemLocation(a.Item)
	if err != nil {
		return err
	}
	switch loc.Type {
	case ItemLocationInventory:
		return noOp("The item %q is already in the player's inventory.", a.Item)
	case ItemLocationRoom:
		if loc.Room != s.PlayerLocation.Room {
			return notFound("The item %q is not in the current room %q.", a.Item, s.PlayerLocation.Room)
		}
	default:
		return bug("unknown item location type %q", loc.Type)
	}
	return in.manager.SetItemLocation(a.Item, InInventory(a.Item, a.DescriptionOfItemInInventory))
}

// dropItem requires the item to be carried and places it in the current room.
func (in *Interpreter) dropItem(a Action) error {
	s := in.manager.State()
	loc, err := s.GetItemLocation(a.Item)
	if err != nil {
		return err
	}
	here := s.PlayerLocation.Room
	switch loc.Type {
	case ItemLocationInventory:
	case ItemLocationRoom:
		if loc.Room == here {
			return noOp("The item %q is already in the room %q.", a.Item, here)
		}
		return notFound("The item %q is not in the player's inventory.", a.Item)
	default:
		return bug("unknown item location type %q", loc.Type)
	}
	return in.manager.SetItemLocation(a.Item, InRoom(a.Item, here, a.DescriptionOfItemInRoom))
}

// move re-checks connectivity instead of trusting the model's output.
func (in *Interpreter) move(a Action) error {
	s := in.manager.State()
	here := s.PlayerLocation.Room
	if a.Room == here {
		return noOp("The player is already in %q.", here)
	}
	if !s.AreConnected(here, a.Room) {
		return illegalMove("The room %q is not connected to %q.", a.Room, here)
	}
	return in.manager.SetPlayerLocation(PlayerLocation{Room: a.Room, Description: a.DescriptionOfPlayerInRoom})
}

// NewRoomNeeded returns the target of the first Move in actions whose room
// has not been generated yet and is a frontier of the room the player will be
// in at that point. Earlier legal Moves are followed. A Move that cannot
// succeed stops the search, so no room is generated for a rejected turn.
func (s *GameState) NewRoomNeeded(actions []Action) (string, bool) {
	here := s.PlayerLocation.Room
	for _, a := range actions {
		if a.Type != ActionMove || a.Room == "" {
			continue
		}
		if a.Room == here || !s.AreConnected(here, a.Room) {
			return "", false
		}
		if s.roomIndex(a.Room) < 0 {
			return a.Room, true
		}
		here = a.Room
	}
	return "", false
}
