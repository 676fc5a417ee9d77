package state

// LegalActions is the set of values a model may use when proposing actions
// from the current state. Item and room lists are empty when the matching
// action type is not offered.
type LegalActions struct {
	Types          []ActionType `json:"types"`
	TakeableItems  []string     `json:"takeableItems"`
	DroppableItems []string     `json:"droppableItems"`
	ReachableRooms []string     `json:"reachableRooms"`
}

// LegalActions computes what the player can do from here. Inspect and Pass
// are always offered.
func (s *GameState) LegalActions() LegalActions {
	la := LegalActions{
		TakeableItems:  []string{},
		DroppableItems: []string{},
		ReachableRooms: []string{},
	}
	for _, loc := range s.GetItemsInRoom(s.PlayerLocation.Room) {
		la.TakeableItems = append(la.TakeableItems, loc.Item)
	}
	for _, loc := range s.GetInventory() {
		la.DroppableItems = append(la.DroppableItems, loc.Item)
	}
	la.ReachableRooms = append(la.ReachableRooms, s.ConnectedRooms(s.PlayerLocation.Room)...)

	if len(la.DroppableItems) > 0 {
		la.Types = append(la.Types, ActionDropItem)
	}
	if len(la.ReachableRooms) > 0 {
		la.Types = append(la.Types, ActionMove)
	}
	if len(la.TakeableItems) > 0 {
		la.Types = append(la.Types, ActionTakeItem)
	}
	la.Types = append(la.Types, ActionInspect, ActionPass)
	return la
}

// Allows reports whether a falls inside the legal value sets. It does not
// replace the interpreter's checks.
func (la LegalActions) Allows(a Action) bool {
	switch a.Type {
	case ActionTakeItem:
		return contains(la.TakeableItems, a.Item)
	case ActionDropItem:
		return contains(la.DroppableItems, a.Item)
	case ActionMove:
		return contains(la.ReachableRooms, a.Room)
	case ActionInspect, ActionPass:
		return true
	default:
		return false
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
