package cli

import (
	"fmt"
	"os"
)

// Export writes the store as YAML to path, or to the output when path is empty.
func (c *Commands) Export(path string) error {
	if path == "" {
		return c.catalog.Export(c.out)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}

	if err := c.catalog.Export(file); err != nil {
		_ = file.Close()

		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}

	fmt.Fprintf(c.errOut, "exported to %s\n", path)

	return nil
}

// Import merges a YAML export into the store.
func (c *Commands) Import(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer file.Close()

	result, err := c.catalog.Import(file)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "imported %d project(s) and %d job(s)\n", result.Projects, result.Jobs)

	return nil
}
