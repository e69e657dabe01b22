package patch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/protocol/diff"
	"github.com/grafana/changeset/protocol/hash"
)

// scratchPrefix names the working copies Exec writes.
const scratchPrefix = ".merge_file_"

// Exec runs patch(1) on a scratch copy of the original content. Scratch
// files live in Dir, are named from the original's id plus a random
// suffix, and are removed once the file is patched, successfully or not.
// Creations and deletions are resolved without running patch(1).
type Exec struct {
	// Binary is the patch executable. Defaults to "patch".
	Binary string
	// Dir holds scratch files. Defaults to the system temporary directory.
	Dir string
}

func (e Exec) Apply(ctx context.Context, f *diff.FileDiff, original []byte) ([]byte, error) {
	if f.Binary {
		return nil, NewError(f.TargetPath(), "", fmt.Errorf("%w: binary diff", ErrRejected))
	}
	if f.IsDelete() {
		return nil, nil
	}
	if len(f.Hunks) == 0 {
		return original, nil
	}
	if f.IsCreate() {
		return InProcess{}.Apply(ctx, f, nil)
	}

	logger := log.FromContextOr(ctx, nil)
	dir := e.Dir
	if dir == "" {
		dir = os.TempDir()
	}

	id := f.OldID
	if id == "" {
		id = hash.SentinelHex
	}
	base := filepath.Join(dir, fmt.Sprintf("%s%s-%s", scratchPrefix, id[:min(len(id), 8)], uuid.NewString()))
	target, patchFile := base, base+".patch"
	defer func() {
		for _, p := range []string{target, patchFile, target + ".rej", target + ".orig"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Debug("Scratch file not removed", "path", p, "error", err)
			}
		}
	}()

	if err := os.WriteFile(target, original, 0o600); err != nil {
		return nil, fmt.Errorf("write scratch copy: %w", err)
	}
	if err := os.WriteFile(patchFile, []byte(f.String()), 0o600); err != nil {
		return nil, fmt.Errorf("write patch: %w", err)
	}

	binary := e.Binary
	if binary == "" {
		binary = "patch"
	}
	cmd := exec.CommandContext(ctx, binary, //nolint:gosec // arguments are scratch paths
		"--batch", "--silent", "--no-backup-if-mismatch", "--reject-file=-",
		target, "--input="+patchFile,
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, NewError(f.TargetPath(), strings.TrimSpace(output.String()), ErrRejected)
		}
		return nil, fmt.Errorf("run %s: %w", binary, err)
	}

	out, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read patched copy: %w", err)
	}
	return out, nil
}

var _ Patcher = Exec{}
