package state

import (
	"fmt"
	"strings"
)

// DescribeWorld renders the part of the world the player can perceive as a
// single Markdown document for use as model context. It does not modify s.
func (s *GameState) DescribeWorld() string {
	var b strings.Builder

	b.WriteString("# Game State\n\n")
	b.WriteString("This document describes the current state of the game.\n\n")

	b.WriteString("## Setting\n\n")
	b.WriteString(s.Setting)
	b.WriteString("\n\n")

	b.WriteString("## Player\n\n")
	fmt.Fprintf(&b, "The player's name is %q. %s\n\n", s.Player.Name, s.Player.Description)

	b.WriteString("## Inventory\n\n")
	b.WriteString(s.DescribeInventory())
	b.WriteString("\n\n")

	b.WriteString("## Current Room\n\n")
	b.WriteString(s.DescribeLocation())
	b.WriteString("\n\n")

	b.WriteString("## Connected Rooms\n\n")
	b.WriteString(s.DescribeConnections())

	return strings.TrimSpace(b.String())
}

// DescribeInventory lists the carried items with their descriptions.
func (s *GameState) DescribeInventory() string {
	inv := s.GetInventory()
	if len(inv) == 0 {
		return "The player inventory is empty."
	}
	var b strings.Builder
	b.WriteString("The player inventory contains:\n")
	s.writeItemList(&b, inv)
	return strings.TrimRight(b.String(), "\n")
}

// DescribeLocation describes the current room and the items lying in it.
func (s *GameState) DescribeLocation() string {
	var b strings.Builder
	here := s.PlayerLocation.Room
	fmt.Fprintf(&b, "The player is currently in %q: %s\n", here, s.PlayerLocation.Description)
	if r := s.roomIndex(here); r >= 0 {
		fmt.Fprintf(&b, "%s\n", s.Rooms[r].Description)
	}

	items := s.GetItemsInRoom(here)
	if len(items) == 0 {
		b.WriteString("\nThere are no items in this room.")
		return b.String()
	}
	b.WriteString("\nThe following items are in this room:\n")
	s.writeItemList(&b, items)
	return strings.TrimRight(b.String(), "\n")
}

// DescribeConnections lists the rooms reachable from the current room.
func (s *GameState) DescribeConnections() string {
	here := s.PlayerLocation.Room
	conns := s.GetRoomConnections(here)
	if len(conns) == 0 {
		return "The player's current room is not connected to any other room."
	}
	var b strings.Builder
	b.WriteString("The player's current room is connected to the following rooms:\n")
	for _, c := range conns {
		fmt.Fprintf(&b, "- %q: %s\n", c.Other(here), c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *GameState) writeItemList(b *strings.Builder, locs []ItemLocation) {
	for _, loc := range locs {
		fmt.Fprintf(b, "- %q: %s\n", loc.Item, loc.Description)
		if i := s.itemIndex(loc.Item); i >= 0 {
			fmt.Fprintf(b, "  - Description: %s\n", s.Items[i].Description)
		}
	}
}
