package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/ironsheep/mask-regions/internal/fault"
)

// ResolveCheckpoint returns the first existing regular file among override
// (when non-empty) and then search, in order.
//
// When none exists the error is a fault.ModelArtifactNotFound that lists
// every location tried.
func ResolveCheckpoint(override string, search []string) (string, error) {
	candidates := make([]string, 0, len(search)+1)
	if override != "" {
		candidates = append(candidates, override)
	}
	candidates = append(candidates, search...)

	for _, path := range candidates {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}

	return "", &fault.Error{
		Kind: fault.ModelArtifactNotFound,
		Op:   "resolve checkpoint",
		Err:  fmt.Errorf("SAM checkpoint not found (searched: %s)", strings.Join(candidates, ", ")),
	}
}
