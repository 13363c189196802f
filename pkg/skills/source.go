package skills

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/agentdeck/agentdeck/pkg/logger"
	"github.com/pkg/errors"
)

const sourceFileName = ".source.json"

// LoadSource reads the provenance sidecar from a skill directory. A missing
// or corrupt sidecar degrades to nil rather than failing the skill load.
func LoadSource(ctx context.Context, dir string) *Source {
	data, err := os.ReadFile(filepath.Join(dir, sourceFileName))
	if err != nil {
		return nil
	}

	var source Source
	if err := json.Unmarshal(data, &source); err != nil {
		logger.G(ctx).WithError(err).WithField("dir", dir).Debug("ignoring corrupt skill source sidecar")
		return nil
	}
	if source.Type == "" {
		return nil
	}
	return &source
}

// SaveSource persists the provenance sidecar, pretty-printed.
func SaveSource(dir string, source *Source) error {
	if source == nil {
		return errors.New("source is required")
	}

	data, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal skill source")
	}

	if err := os.WriteFile(filepath.Join(dir, sourceFileName), append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "failed to write skill source sidecar")
	}
	return nil
}
