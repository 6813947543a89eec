package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"strands.run/internal/protocol"
)

// Write serializes the document as UTF-8 JSON (no BOM) at path, creating
// parent directories as needed.
func Write(path string, doc protocol.StateDoc) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("state snapshot dir: %w", err)
		}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("state snapshot encode: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("state snapshot write: %w", err)
	}
	return nil
}
