package memory

import (
	"fmt"
	"os"
)

// LoadExecutableFile reads and loads an executable file from disk. File errors are returned
// wrapped in ErrLoader.
func (m *Memory) LoadExecutableFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoader, err)
	}

	if err := m.LoadExecutableText(data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoader, path, err)
	}

	return nil
}
