package ciutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Project root marker files
const (
	GoModFile    = "go.mod" // Primary marker file for Go projects
	GitDirectory = ".git"   // Git directory marker

	// MigrationsDirName is the conventional migrations directory below the project root.
	MigrationsDirName = "migrations"
)

// Common errors for project root detection
var (
	ErrProjectRootNotFound = errors.New("unable to find project root")
	ErrInvalidProjectRoot  = errors.New("invalid project root: no go.mod file found")
)

// FindProjectRoot returns the absolute path to the project root directory.
// It checks several sources in the following order:
//
// 1. TESTKIT_PROJECT_ROOT environment variable (explicit override)
// 2. GITHUB_WORKSPACE environment variable (GitHub Actions)
// 3. CI_PROJECT_DIR environment variable (GitLab CI)
// 4. Auto-detection by traversing directories upward looking for go.mod
func FindProjectRoot(logger *slog.Logger) (string, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	if logger != nil {
		logger.Debug("starting project root detection", "working_dir", workingDir)
	}

	candidates := []struct {
		source  string
		enabled bool
		dir     string
	}{
		{source: EnvProjectRoot, enabled: true, dir: os.Getenv(EnvProjectRoot)},
		{source: EnvGitHubWorkspace, enabled: IsGitHubActions(), dir: os.Getenv(EnvGitHubWorkspace)},
		{source: EnvGitLabProjectDir, enabled: IsGitLabCI(), dir: os.Getenv(EnvGitLabProjectDir)},
	}

	for _, c := range candidates {
		if !c.enabled || c.dir == "" {
			continue
		}
		if logger != nil {
			logger.Info("using project root from environment", "source", c.source, "project_root", c.dir)
		}
		if !isValidProjectRoot(c.dir) {
			return "", fmt.Errorf("%w at %s", ErrInvalidProjectRoot, c.dir)
		}
		return c.dir, nil
	}

	return findProjectRootByTraversal(workingDir, logger)
}

// findProjectRootByTraversal looks for project markers by traversing directories upward.
// It starts from the given directory and looks for go.mod or .git.
func findProjectRootByTraversal(startDir string, logger *slog.Logger) (string, error) {
	currentDir := startDir
	maxIterations := 10 // Limit traversal to prevent infinite loops

	for i := 0; i < maxIterations; i++ {
		if fileExists(filepath.Join(currentDir, GoModFile)) {
			if logger != nil {
				logger.Debug("found project root with go.mod", "project_root", currentDir)
			}
			return currentDir, nil
		}

		if dirExists(filepath.Join(currentDir, GitDirectory)) {
			if logger != nil {
				logger.Debug("found project root with .git directory", "project_root", currentDir)
			}
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	if logger != nil {
		logger.Error("failed to find project root by directory traversal",
			"start_dir", startDir,
			"max_iterations", maxIterations,
		)
	}

	return "", ErrProjectRootNotFound
}

// isValidProjectRoot checks if the given directory exists and contains a go.mod file.
func isValidProjectRoot(dir string) bool {
	return dirExists(dir) && fileExists(filepath.Join(dir, GoModFile))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FindMigrationsDir returns the absolute path of the migrations directory
// below the project root.
func FindMigrationsDir(logger *slog.Logger) (string, error) {
	projectRoot, err := FindProjectRoot(logger)
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}

	migrationsPath := filepath.Join(projectRoot, MigrationsDirName)
	if !dirExists(migrationsPath) {
		return "", fmt.Errorf("migrations directory not found at %s", migrationsPath)
	}

	return migrationsPath, nil
}
