package seed

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes a seed document. Unknown keys are rejected so typos in
// hand-written seeds surface early.
func LoadYAML(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Seed
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("seed document is empty")
		}
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	return &s, nil
}
