package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/manor-engine/pkg/chat"
	"github.com/jwebster45206/manor-engine/pkg/state"
)

// Task names one of the model calls made during a turn.
type Task string

const (
	TaskPlan      Task = "plan"
	TaskActions   Task = "actions"
	TaskRoom      Task = "room"
	TaskItems     Task = "items"
	TaskNarration Task = "narration"
)

// Builder constructs chat messages for one task using a fluent interface.
type Builder struct {
	task            Task
	gs              *state.GameState
	prompt          string
	plan            string
	actions         []state.Action
	roomName        string
	roomDescription string
	connections     int
}

// New creates a prompt builder for task.
func New(task Task) *Builder {
	return &Builder{
		task:        task,
		connections: DefaultNewConnections,
	}
}

// WithGameState sets the world graph the prompt describes.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithUserMessage sets the player's prompt for this turn.
func (b *Builder) WithUserMessage(prompt string) *Builder {
	b.prompt = prompt
	return b
}

// WithPlan sets the action plan produced by the plan task.
func (b *Builder) WithPlan(plan string) *Builder {
	b.plan = plan
	return b
}

// WithActions sets the actions applied this turn.
func (b *Builder) WithActions(actions []state.Action) *Builder {
	b.actions = actions
	return b
}

// WithRoom sets the room being generated or furnished.
func (b *Builder) WithRoom(name, description string) *Builder {
	b.roomName = name
	b.roomDescription = description
	return b
}

// WithConnections sets how many onward connections a new room should get.
func (b *Builder) WithConnections(n int) *Builder {
	b.connections = n
	return b
}

// Schema returns the structured output schema of the task, or nil for
// free-text tasks.
func (b *Builder) Schema() *chat.Schema {
	switch b.task {
	case TaskActions:
		if b.gs == nil {
			return nil
		}
		return ActionsSchema(b.gs.LegalActions())
	case TaskRoom:
		return RoomSchema(b.roomName)
	case TaskItems:
		return ItemsSchema()
	default:
		return nil
	}
}

// Build constructs the system and user messages for the task.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	var system, user string
	var err error

	switch b.task {
	case TaskPlan:
		if b.gs == nil {
			return nil, fmt.Errorf("gamestate is required")
		}
		if strings.TrimSpace(b.prompt) == "" {
			return nil, fmt.Errorf("user message is required")
		}
		system, err = systemPrompt("plan", nil)
		user = b.gs.DescribeWorld() + "\n\n---\n\n" + b.prompt

	case TaskActions:
		if b.gs == nil {
			return nil, fmt.Errorf("gamestate is required")
		}
		if strings.TrimSpace(b.plan) == "" {
			return nil, fmt.Errorf("action plan is required")
		}
		la := b.gs.LegalActions()
		types := make([]string, 0, len(la.Types))
		for _, t := range la.Types {
			types = append(types, string(t))
		}
		system, err = systemPrompt("actions", map[string]any{
			"Schema": schemaJSON(ActionsSchema(la)),
			"Legal": map[string][]string{
				"Types":          types,
				"TakeableItems":  la.TakeableItems,
				"DroppableItems": la.DroppableItems,
				"ReachableRooms": la.ReachableRooms,
			},
		})
		user = b.plan

	case TaskRoom:
		if b.roomName == "" {
			return nil, fmt.Errorf("room name is required")
		}
		system, err = systemPrompt("room", map[string]any{
			"Connections": b.connections,
			"Schema":      schemaJSON(RoomSchema(b.roomName)),
		})
		user = b.roomName
		if b.gs != nil && b.gs.Setting != "" {
			user = "Setting: " + b.gs.Setting + "\n\nNew room: " + b.roomName
		}

	case TaskItems:
		if b.roomName == "" {
			return nil, fmt.Errorf("room name is required")
		}
		system, err = systemPrompt("items", map[string]any{
			"Schema": schemaJSON(ItemsSchema()),
		})
		user = b.roomName
		if b.roomDescription != "" {
			user += "\n\n" + b.roomDescription
		}

	case TaskNarration:
		if strings.TrimSpace(b.prompt) == "" {
			return nil, fmt.Errorf("user message is required")
		}
		system, err = systemPrompt("narration", nil)
		if err == nil {
			user, err = render("narration_user", map[string]any{
				"Prompt":  b.prompt,
				"Actions": b.actions,
			})
		}

	default:
		return nil, fmt.Errorf("unknown prompt task %q", b.task)
	}

	if err != nil {
		return nil, fmt.Errorf("error building %s prompt: %w", b.task, err)
	}
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
		{Role: chat.ChatRoleUser, Content: user},
	}, nil
}

func schemaJSON(s *chat.Schema) string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
