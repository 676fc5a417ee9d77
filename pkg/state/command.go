package state

import (
	"strings"

	"github.com/jwebster45206/manor-engine/pkg/chat"
)

type CommandType string

const (
	CmdLook      CommandType = "look"
	CmdInventory CommandType = "inventory"
	CmdExits     CommandType = "exits"
	CmdNone      CommandType = "" // No command, used for fallback
)

var knownCommands = map[string]CommandType{
	"look":      CmdLook,
	"location":  CmdLook,
	"l":         CmdLook,
	"inventory": CmdInventory,
	"i":         CmdInventory,
	"exits":     CmdExits,
	"x":         CmdExits,
}

// parseCommand returns the shortcut named by input, or CmdNone.
func parseCommand(input string) CommandType {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return CmdNone
	}
	return knownCommands[trimmed]
}

// CommandResult is an early evaluation of a player prompt.
type CommandResult struct {
	Handled bool   // True if the command was fully resolved and no LLM call is needed
	Message string // Message or prompt to return
	Role    string // Role for the message, e.g. "user", "assistant"
}

// TryHandleCommand answers shortcut commands from the world graph without
// calling the model. Shortcuts never mutate s and never append a turn.
func (s *GameState) TryHandleCommand(input string) *CommandResult {
	switch parseCommand(input) {
	case CmdLook:
		return &CommandResult{Handled: true, Message: s.DescribeLocation(), Role: chat.ChatRoleAgent}
	case CmdInventory:
		return &CommandResult{Handled: true, Message: s.DescribeInventory(), Role: chat.ChatRoleAgent}
	case CmdExits:
		return &CommandResult{Handled: true, Message: s.DescribeConnections(), Role: chat.ChatRoleAgent}
	default:
		return &CommandResult{Handled: false, Message: input, Role: chat.ChatRoleUser}
	}
}
