// Package manifest reads package metadata for the directory a pipeline run
// operates on. The current implementation understands Go module manifests.
package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

const (
	moduleManifestFileNameConstant        = "go.mod"
	missingModulePathMessageConstant      = "module manifest declares no module path"
	manifestDirectoryMissingConstant      = "manifest directory not provided"
	modulePathSegmentSeparatorConstant    = "/"
	unknownPackageNamePlaceholderConstant = "unknown"
)

var (
	// ErrModulePathMissing indicates the manifest parsed but declared no module path.
	ErrModulePathMissing = errors.New(missingModulePathMessageConstant)
	// ErrDirectoryMissing indicates no manifest directory was provided.
	ErrDirectoryMissing = errors.New(manifestDirectoryMissingConstant)
)

// ModuleReader resolves package names from Go module manifests on disk.
type ModuleReader struct{}

// NewModuleReader constructs a manifest reader.
func NewModuleReader() ModuleReader {
	return ModuleReader{}
}

// ModulePath returns the module path declared by the go.mod in the provided
// directory.
func (reader ModuleReader) ModulePath(manifestDirectory string) (string, error) {
	trimmedDirectory := strings.TrimSpace(manifestDirectory)
	if len(trimmedDirectory) == 0 {
		return "", ErrDirectoryMissing
	}

	manifestPath := filepath.Join(trimmedDirectory, moduleManifestFileNameConstant)
	manifestContent, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return "", readError
	}

	parsedManifest, parseError := modfile.ParseLax(manifestPath, manifestContent, nil)
	if parseError != nil {
		return "", parseError
	}
	if parsedManifest.Module == nil || len(strings.TrimSpace(parsedManifest.Module.Mod.Path)) == 0 {
		return "", ErrModulePathMissing
	}

	return parsedManifest.Module.Mod.Path, nil
}

// PackageName returns the last segment of the declared module path, or the
// placeholder name when the manifest cannot be read. Pipeline diagnostics use
// the name for decoration only, so lookup failures degrade instead of failing.
func (reader ModuleReader) PackageName(manifestDirectory string) string {
	modulePath, resolveError := reader.ModulePath(manifestDirectory)
	if resolveError != nil {
		return unknownPackageNamePlaceholderConstant
	}

	pathSegments := strings.Split(modulePath, modulePathSegmentSeparatorConstant)
	return pathSegments[len(pathSegments)-1]
}
