package chat

import (
	"fmt"
	"sort"
	"strings"
)

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Game master
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage represents a single chat message in the conversation sent to
// the LLM.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the text returned by a plain chat completion.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
}

// TurnRequest is a natural-language prompt from the player.
type TurnRequest struct {
	Prompt string `json:"prompt"`
}

func (r *TurnRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	return nil
}

// SchemaType names a JSON schema type.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the subset of JSON Schema every LLM provider here can enforce or
// be prompted with. Enum restricts a string to the listed values.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// String returns a string schema with a description.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// Enum returns a string schema restricted to values.
func Enum(description string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: description, Enum: values}
}

// Object returns an object schema. With no required names given, every
// property is required.
func Object(props map[string]*Schema, required ...string) *Schema {
	if len(required) == 0 {
		for k := range props {
			required = append(required, k)
		}
		sort.Strings(required)
	}
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// ArrayOf returns an array schema.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}
