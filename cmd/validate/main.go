package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/manor-engine/internal/seed"
	"github.com/jwebster45206/manor-engine/pkg/state"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <save.json|seed.yaml|seed.lua>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		problems, err := validateFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
			failed = true
			continue
		}
		if len(problems) > 0 {
			failed = true
			fmt.Printf("%s: %d problem(s)\n", filename, len(problems))
			for _, p := range problems {
				fmt.Printf("  - %s\n", p)
			}
			continue
		}
		fmt.Printf("%s: valid\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

// validateFile returns every invariant the file's world breaks. An error
// means the file could not be read or decoded at all.
func validateFile(filename string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return validateSave(filename)
	case ".yaml", ".yml", ".lua":
		return validateSeed(filename)
	default:
		return nil, fmt.Errorf("unsupported file type (expected .json, .yaml, .yml or .lua)")
	}
}

func validateSave(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var g state.Game
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("invalid game save: %w", err)
	}

	problems := violations(&g.State)
	for i, t := range g.Turns {
		for j, a := range t.Actions {
			if err := a.Validate(); err != nil {
				problems = append(problems, fmt.Sprintf("turn %d action %d: %v", i, j, err))
			}
		}
	}
	return problems, nil
}

func validateSeed(filename string) ([]string, error) {
	s, err := seed.Load(filename)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return []string{err.Error()}, nil
	}
	gs := s.Build()
	return violations(&gs), nil
}

func violations(gs *state.GameState) []string {
	var out []string
	for _, v := range gs.Violations() {
		out = append(out, v.Error())
	}
	return out
}
