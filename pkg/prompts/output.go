package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jwebster45206/manor-engine/pkg/state"
)

// ActionsOutput is the model's reply to an actions request.
type ActionsOutput struct {
	Actions []state.Action `json:"actions"`
}

// RoomOutput is the model's reply to a room generation request.
type RoomOutput struct {
	RoomDescription string `json:"roomDescription"`
	Connections     []struct {
		OtherRoom   string `json:"otherRoom"`
		Description string `json:"description"`
	} `json:"connections"`
}

// ItemsOutput is the model's reply to an item generation request.
type ItemsOutput struct {
	Items []struct {
		ItemName                string `json:"itemName"`
		ItemDescription         string `json:"itemDescription"`
		ItemLocationDescription string `json:"itemLocationDescription"`
	} `json:"items"`
}

// GeneratedItem pairs a new item with where it lies in its room.
type GeneratedItem struct {
	Item     state.Item
	Location state.ItemLocation
}

// ParseActions decodes and normalizes an actions reply. Every action must
// be structurally valid.
func ParseActions(text string) ([]state.Action, error) {
	var out ActionsOutput
	if err := DecodeJSON(text, &out); err != nil {
		return nil, err
	}
	for i := range out.Actions {
		a := &out.Actions[i]
		a.Item = NormalizeName(a.Item)
		a.Room = NormalizeName(a.Room)
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}
	return out.Actions, nil
}

// ParseRoom decodes a room reply into the room and its connections. Every
// connection has the new room as Room1.
func ParseRoom(name, text string) (state.Room, []state.RoomConnection, error) {
	var out RoomOutput
	if err := DecodeJSON(text, &out); err != nil {
		return state.Room{}, nil, err
	}
	if strings.TrimSpace(out.RoomDescription) == "" {
		return state.Room{}, nil, fmt.Errorf("room %q: empty description", name)
	}
	room := state.Room{Name: name, Description: strings.TrimSpace(out.RoomDescription)}
	var conns []state.RoomConnection
	for _, c := range out.Connections {
		other := NormalizeName(c.OtherRoom)
		if other == "" || other == name {
			continue
		}
		conns = append(conns, state.RoomConnection{Room1: name, Room2: other, Description: c.Description})
	}
	return room, conns, nil
}

// ParseItems decodes an items reply into items lying in room. Unnamed items
// are dropped.
func ParseItems(room, text string) ([]GeneratedItem, error) {
	var out ItemsOutput
	if err := DecodeJSON(text, &out); err != nil {
		return nil, err
	}
	var items []GeneratedItem
	for _, it := range out.Items {
		name := NormalizeName(it.ItemName)
		if name == "" {
			continue
		}
		items = append(items, GeneratedItem{
			Item:     state.Item{Name: name, Description: it.ItemDescription},
			Location: state.InRoom(name, room, it.ItemLocationDescription),
		})
	}
	return items, nil
}

// DecodeJSON unmarshals a model reply, tolerating a surrounding Markdown
// code fence.
func DecodeJSON(text string, v any) error {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("unparseable model output: %w", err)
	}
	return nil
}

// NormalizeName puts a model-produced entity name in canonical form so it
// compares equal to the name stored in the world graph: NFC, no surrounding
// whitespace or quotes.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "\"`“”")
	return strings.TrimSpace(name)
}
