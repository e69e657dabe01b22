package changeset

import (
	"path"
	"strings"
)

// normalizePath turns p into the slash separated, relative form tree
// entries are stored under. Empty segments and "." are dropped, so the root
// is "". A ".." segment is rejected rather than resolved.
func normalizePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if strings.ContainsRune(p, 0) {
		return "", NewInvalidPathError(p, "path contains a NUL byte")
	}

	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			return "", NewInvalidPathError(p, "path contains parent directory references (..)")
		default:
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "/"), nil
}

// validateFilePath validates and normalizes a path naming a file or directory
// entry. It cannot be empty because the root has no entry of its own.
func validateFilePath(p string) (string, error) {
	normalized, err := normalizePath(p)
	if err != nil {
		return "", err
	}

	if normalized == "" {
		return "", NewInvalidPathError(p, "path cannot be empty")
	}

	return normalized, nil
}

// validateDirPath validates a directory path and returns it in directory form:
// slash terminated, with "" for the root.
func validateDirPath(p string) (string, error) {
	normalized, err := normalizePath(p)
	if err != nil {
		return "", err
	}

	return asDir(normalized), nil
}

// asDir turns a normalized path into directory form.
func asDir(p string) string {
	if p == "" {
		return ""
	}
	return p + "/"
}

// splitPath returns the directory form of p's parent and p's base name.
func splitPath(p string) (string, string) {
	dir, name := path.Split(p)
	return dir, name
}

// ancestors lists the directories containing p, root first, in directory form.
func ancestors(p string) []string {
	dirs := []string{""}
	dir, _ := splitPath(p)
	walked := ""
	for _, part := range strings.Split(strings.TrimSuffix(dir, "/"), "/") {
		if part == "" {
			continue
		}
		walked += part + "/"
		dirs = append(dirs, walked)
	}
	return dirs
}
