package prompts

import (
	"github.com/jwebster45206/manor-engine/pkg/chat"
	"github.com/jwebster45206/manor-engine/pkg/state"
)

// DefaultNewConnections is how many onward connections a generated room gets.
const DefaultNewConnections = 3

// ActionsSchema constrains proposed actions to the legal value sets. Item and
// room fields only appear when something can be taken, dropped or reached.
func ActionsSchema(la state.LegalActions) *chat.Schema {
	types := make([]string, 0, len(la.Types))
	for _, t := range la.Types {
		types = append(types, string(t))
	}

	props := map[string]*chat.Schema{
		"type":        chat.Enum("The kind of action the player takes.", types...),
		"description": chat.String("A concise one-sentence description of how the player performs the action."),
		"inspectProcessDescription": chat.String(
			"For PlayerInspect: a concise one-sentence description of how the player inspects an item, room, or anything else."),
		"inspectResultDescription": chat.String(
			"For PlayerInspect: a concise one-sentence description of what the player observes as a result of their inspection."),
	}

	items := append(append([]string{}, la.TakeableItems...), la.DroppableItems...)
	if len(items) > 0 {
		props["item"] = chat.Enum("For PlayerTakeItem and PlayerDropItem: the item taken or dropped.", items...)
	}
	if len(la.TakeableItems) > 0 {
		props["descriptionOfItemInInventory"] = chat.String(
			"For PlayerTakeItem: a concise one-sentence description of exactly how the item is being held or otherwise stored by the player.")
	}
	if len(la.DroppableItems) > 0 {
		props["descriptionOfItemInRoom"] = chat.String(
			"For PlayerDropItem: a concise one-sentence description of where the item is placed in the player's current room.")
	}
	if len(la.ReachableRooms) > 0 {
		props["room"] = chat.Enum("For PlayerMove: the room the player moves to.", la.ReachableRooms...)
		props["descriptionOfPlayerInRoom"] = chat.String(
			"For PlayerMove: a concise one-sentence description of where exactly the player is in the new room.")
	}

	return chat.Object(map[string]*chat.Schema{
		"actions": chat.ArrayOf(chat.Object(props, "type")),
	})
}

// RoomSchema describes a generated room and its onward connections.
func RoomSchema(roomName string) *chat.Schema {
	return chat.Object(map[string]*chat.Schema{
		"roomDescription": chat.String("A one-paragraph description of " + roomName + "."),
		"connections": chat.ArrayOf(chat.Object(map[string]*chat.Schema{
			"otherRoom":   chat.String("The name of the new room to connect to."),
			"description": chat.String("A concise one-sentence description of the doorway, passage, path, or other type of connection to the new room."),
		})),
	})
}

// ItemsSchema describes the items generated for a new room.
func ItemsSchema() *chat.Schema {
	return chat.Object(map[string]*chat.Schema{
		"items": chat.ArrayOf(chat.Object(map[string]*chat.Schema{
			"itemName":                chat.String("The exact name of the item."),
			"itemDescription":         chat.String("A concise one-paragraph description of the item."),
			"itemLocationDescription": chat.String("A concise one-sentence description of where exactly the item is in the room."),
		})),
	})
}
