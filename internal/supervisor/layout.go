package supervisor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shinji-kodama/openspec-mcp-x/internal/model"
)

const (
	// PackageName is the Python package that holds the server.
	PackageName = "openspec_mcp"

	// ServerModule is the fully qualified module run with `python -m`.
	ServerModule = PackageName + ".server"

	// SearchPathVar is the module search path variable set for the child.
	SearchPathVar = "PYTHONPATH"
)

// Layout describes where the bundled server sources live inside a
// launcher installation:
//
//	<root>/bin/openspec-mcp-x
//	<root>/src/openspec_mcp/server.py
type Layout struct {
	// Root is the installation root directory.
	Root string
}

// SourceDir returns the directory placed on the child's module search path.
func (l Layout) SourceDir() string {
	return filepath.Join(l.Root, "src")
}

// ServerPath returns the path of the server entry module.
func (l Layout) ServerPath() string {
	return filepath.Join(l.SourceDir(), PackageName, "server.py")
}

// Verify checks that the server entry module exists.
//
// A missing module means the launcher installation itself is incomplete
// or corrupted, so the error is of kind model.KindIntegrity.
func (l Layout) Verify() error {
	info, err := os.Stat(l.ServerPath())
	if err != nil {
		msg := "Server module not found at " + l.ServerPath()
		if errors.Is(err, fs.ErrNotExist) {
			return model.NewCLIError(model.KindIntegrity, msg).
				WithRemediation("The openspec-mcp-x installation looks incomplete; reinstall the package.")
		}
		return model.WrapCLIError(model.KindIntegrity, msg, err)
	}
	if info.IsDir() {
		return model.NewCLIError(model.KindIntegrity, "Server module path is a directory: "+l.ServerPath())
	}
	return nil
}

// ResolveInstallRoot derives the installation root from the path of the
// launcher executable: the binary lives in <root>/bin, so the root is two
// levels up. Symlinks are resolved first so that a launcher linked into
// a directory on PATH still finds its own sources.
func ResolveInstallRoot(executable string) (string, error) {
	resolved, err := filepath.EvalSymlinks(executable)
	if err != nil {
		return "", fmt.Errorf("resolving launcher path %s: %w", executable, err)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("resolving launcher path %s: %w", resolved, err)
	}
	return filepath.Dir(filepath.Dir(abs)), nil
}

// ChildEnv returns a copy of base with key set to value.
//
// Any existing entries for key are dropped and the new entry is appended;
// every other entry is kept as is and in order. On Windows variable names
// are matched case-insensitively, as the OS does.
func ChildEnv(base []string, key, value string) []string {
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		name, _, found := strings.Cut(kv, "=")
		if found && sameEnvName(name, key) {
			continue
		}
		env = append(env, kv)
	}
	return append(env, key+"="+value)
}

func sameEnvName(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
