// Package config handles repository layout and settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	SkbDir     = ".skb"
	ConfigFile = "config.yml"
	DBFile     = "kb.db"
	EnvFile    = ".env"

	// RootEnv overrides repository discovery.
	RootEnv = "SKB_ROOT"
)

// ErrNotRepository is returned when no .skb directory can be found.
var ErrNotRepository = errors.New("not in a scholarkb repository (no .skb directory found)")

// ErrAlreadyInitialized is returned by Init when the repository exists.
var ErrAlreadyInitialized = errors.New("repository already initialized")

// SkbPath returns the path to the .skb directory from a root path.
func SkbPath(root string) string {
	return filepath.Join(root, SkbDir)
}

// ConfigPath returns the path to config.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, SkbDir, ConfigFile)
}

// DBPath returns the path to kb.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, SkbDir, DBFile)
}

// EnvPath returns the path to the repository's .env file.
func EnvPath(root string) string {
	return filepath.Join(root, EnvFile)
}

// IsRepository checks if the given path contains a .skb directory.
func IsRepository(root string) bool {
	info, err := os.Stat(SkbPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a repository.
// Returns the repository root path or ErrNotRepository.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotRepository
		}
		abs = parent
	}
}

// ResolveRoot returns the repository root named by SKB_ROOT, or else the
// one found by walking up from the working directory.
func ResolveRoot() (string, error) {
	if root := os.Getenv(RootEnv); root != "" {
		root = ExpandPath(root)
		if !IsRepository(root) {
			return "", fmt.Errorf("%s=%s: %w", RootEnv, root, ErrNotRepository)
		}
		return filepath.Abs(root)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return FindRepository(cwd)
}

// Init creates the .skb directory under root and writes default settings.
func Init(root string) (*Settings, error) {
	if IsRepository(root) {
		return nil, ErrAlreadyInitialized
	}
	if err := os.MkdirAll(SkbPath(root), 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", SkbDir, err)
	}

	s := DefaultSettings()
	if err := s.Save(root); err != nil {
		return nil, err
	}
	return s, nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
