package state

import (
	"fmt"
	"strings"
)

// ActionType discriminates the Action variants.
type ActionType string

const (
	ActionTakeItem ActionType = "PlayerTakeItem"
	ActionDropItem ActionType = "PlayerDropItem"
	ActionMove     ActionType = "PlayerMove"
	ActionInspect  ActionType = "PlayerInspect"
	ActionPass     ActionType = "PlayerPass"
)

// ActionTypes lists every variant in the order offered to the model.
var ActionTypes = []ActionType{ActionDropItem, ActionMove, ActionTakeItem, ActionInspect, ActionPass}

// Action is a structured transition request. Which fields are meaningful
// depends on Type:
//
//	PlayerTakeItem  Item, DescriptionOfItemInInventory, Description
//	PlayerDropItem  Item, DescriptionOfItemInRoom, Description
//	PlayerMove      Room, DescriptionOfPlayerInRoom, Description
//	PlayerInspect   InspectProcessDescription, InspectResultDescription
//	PlayerPass      Description
type Action struct {
	Type ActionType `json:"type"`

	Item string `json:"item,omitempty"`
	Room string `json:"room,omitempty"`

	DescriptionOfItemInInventory string `json:"descriptionOfItemInInventory,omitempty"`
	DescriptionOfItemInRoom      string `json:"descriptionOfItemInRoom,omitempty"`
	DescriptionOfPlayerInRoom    string `json:"descriptionOfPlayerInRoom,omitempty"`

	InspectProcessDescription string `json:"inspectProcessDescription,omitempty"`
	InspectResultDescription  string `json:"inspectResultDescription,omitempty"`

	Description string `json:"description,omitempty"`
}

func TakeItem(item, inInventory, description string) Action {
	return Action{Type: ActionTakeItem, Item: item, DescriptionOfItemInInventory: inInventory, Description: description}
}

func DropItem(item, inRoom, description string) Action {
	return Action{Type: ActionDropItem, Item: item, DescriptionOfItemInRoom: inRoom, Description: description}
}

func Move(room, inRoom, description string) Action {
	return Action{Type: ActionMove, Room: room, DescriptionOfPlayerInRoom: inRoom, Description: description}
}

func Inspect(process, result string) Action {
	return Action{Type: ActionInspect, InspectProcessDescription: process, InspectResultDescription: result}
}

func Pass(description string) Action {
	return Action{Type: ActionPass, Description: description}
}

// Validate checks that the fields required by the variant are present.
func (a Action) Validate() error {
	switch a.Type {
	case ActionTakeItem, ActionDropItem:
		if strings.TrimSpace(a.Item) == "" {
			return fmt.Errorf("%s: item is required", a.Type)
		}
	case ActionMove:
		if strings.TrimSpace(a.Room) == "" {
			return fmt.Errorf("%s: room is required", a.Type)
		}
	case ActionInspect, ActionPass:
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// Summary renders the action as one line of narrative for the status log and
// for the narration prompt.
func (a Action) Summary() string {
	switch a.Type {
	case ActionTakeItem:
		return fmt.Sprintf("%s New location of the item in the player's inventory: %s", a.Description, a.DescriptionOfItemInInventory)
	case ActionDropItem:
		return fmt.Sprintf("%s New location of the item in current room: %s", a.Description, a.DescriptionOfItemInRoom)
	case ActionMove:
		return fmt.Sprintf("%s New location of the player: %s", a.Description, a.DescriptionOfPlayerInRoom)
	case ActionInspect:
		return fmt.Sprintf("%s %s", a.InspectProcessDescription, a.InspectResultDescription)
	case ActionPass:
		return a.Description
	default:
		return string(a.Type)
	}
}

// Mutates reports whether applying the action can change the world graph.
func (a Action) Mutates() bool {
	switch a.Type {
	case ActionTakeItem, ActionDropItem, ActionMove:
		return true
	default:
		return false
	}
}
