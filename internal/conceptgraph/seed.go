package conceptgraph

import (
	"fmt"
	"os"

	_ "embed"
)

//go:embed seed_concepts.json
var seedData []byte

// LoadDefault builds the graph from the embedded seed.
func LoadDefault() (*Graph, error) {
	return Load(seedData)
}

// LoadFile builds the graph from a seed file on disk, for deployments
// that override the embedded concept set.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read concept seed %s: %w", path, err)
	}
	return Load(data)
}
