// Package deps reports the availability of external tools clipd shells
// out to.
package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrMissingTool reports a required external binary that cannot be resolved.
var ErrMissingTool = errors.New("missing external tool")

// Requirement defines an external dependency clipd relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the binary set for the given transcoder command.
func Requirements(ffmpegBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Cuts clips via stream copy",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Verify fails with ErrMissingTool when any required binary is unavailable.
func Verify(requirements []Requirement) error {
	for _, status := range CheckBinaries(requirements) {
		if status.Optional || status.Available {
			continue
		}
		return fmt.Errorf("%w: %s (%s)", ErrMissingTool, status.Name, status.Detail)
	}
	return nil
}
