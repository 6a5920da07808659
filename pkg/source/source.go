// Package source locates the raw telemetry files consumed by the pipeline.
//
// Acquisition itself (download, extraction) happens outside ratecast; a
// Source only lists what is already on disk, in a deterministic order so
// that every run produces identically ordered matrices.
//
// Training data is laid out as
//
//	<train-dir>/<client>/<server>/<request-file>
//
// and test data as one JSON document per file in <test-dir>.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ServerPath is the set of request files collected for one client/server pair.
type ServerPath struct {
	Client string
	Server string
	Files  []string
}

// Key identifies the path as "client/server".
func (p ServerPath) Key() string {
	return p.Client + "/" + p.Server
}

// TestFile is one unlabeled test document.
type TestFile struct {
	// ID is the file name without extension; predictions are reported under it.
	ID   string
	Path string
}

// Source lists training and test inputs.
type Source interface {
	// TrainingPaths returns every client/server pair sorted by client then server.
	TrainingPaths(ctx context.Context) ([]ServerPath, error)

	// TestFiles returns the test documents sorted by file name.
	TestFiles(ctx context.Context) ([]TestFile, error)

	// Name returns a short identifier, e.g. "local".
	Name() string
}

// LocalSource reads the directory layout from the local filesystem.
type LocalSource struct {
	TrainDir string
	TestDir  string
}

// NewLocalSource returns a LocalSource for the given directories.
func NewLocalSource(trainDir, testDir string) *LocalSource {
	return &LocalSource{TrainDir: trainDir, TestDir: testDir}
}

func (s *LocalSource) Name() string { return "local" }

// TrainingPaths implements Source. Entries that are not directories at the
// client or server level are ignored, as are subdirectories of a server.
func (s *LocalSource) TrainingPaths(ctx context.Context) ([]ServerPath, error) {
	if s.TrainDir == "" {
		return nil, fmt.Errorf("local source: training directory not set")
	}

	clients, err := subdirs(s.TrainDir)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	var paths []ServerPath
	for _, client := range clients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		clientDir := filepath.Join(s.TrainDir, client)
		servers, err := subdirs(clientDir)
		if err != nil {
			return nil, fmt.Errorf("list servers of %s: %w", client, err)
		}

		for _, server := range servers {
			files, err := regularFiles(filepath.Join(clientDir, server))
			if err != nil {
				return nil, fmt.Errorf("list requests of %s/%s: %w", client, server, err)
			}
			paths = append(paths, ServerPath{Client: client, Server: server, Files: files})
		}
	}

	return paths, nil
}

// TestFiles implements Source.
func (s *LocalSource) TestFiles(ctx context.Context) ([]TestFile, error) {
	if s.TestDir == "" {
		return nil, fmt.Errorf("local source: test directory not set")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := regularFiles(s.TestDir)
	if err != nil {
		return nil, fmt.Errorf("list test files: %w", err)
	}

	out := make([]TestFile, 0, len(files))
	for _, path := range files {
		base := filepath.Base(path)
		out = append(out, TestFile{
			ID:   strings.TrimSuffix(base, filepath.Ext(base)),
			Path: path,
		})
	}
	return out, nil
}

// subdirs returns the sorted names of the directories directly under dir.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// regularFiles returns the sorted paths of the non-directory entries of dir.
func regularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}
