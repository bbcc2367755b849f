package tier

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteFile persists a Pyramid as tiers_bandN.json.
func WriteFile(path string, p Pyramid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tier: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("tier: encode %s: %w", path, err)
	}
	return f.Sync()
}

// ReadFile loads a Pyramid from a tiers_bandN.json file.
func ReadFile(path string) (Pyramid, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pyramid{}, fmt.Errorf("tier: read %s: %w", path, err)
	}
	var p Pyramid
	if err := json.Unmarshal(b, &p); err != nil {
		return Pyramid{}, fmt.Errorf("tier: decode %s: %w", path, err)
	}
	return p, nil
}
