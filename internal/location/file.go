package location

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadJSON reads a JSON array of locations from path and validates each entry.
// Unknown fields such as photo or abstract are ignored.
func LoadJSON(path string) ([]Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}

	var locs []Location
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}

	for _, l := range locs {
		if err := l.Validate(); err != nil {
			return nil, err
		}
	}
	if _, err := Index(locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// NewFileRepository loads path into an in-memory repository.
func NewFileRepository(path string) (*InMemoryRepository, error) {
	locs, err := LoadJSON(path)
	if err != nil {
		return nil, err
	}
	return NewInMemoryRepository(locs...), nil
}
