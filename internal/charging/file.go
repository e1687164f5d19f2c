package charging

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadJSON reads a JSON array of stations.
func LoadJSON(path string) ([]Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}
	var stations []Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("decode stations %s: %w", path, err)
	}
	return stations, nil
}
