package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"promptflow/internal/workflow"
)

const (
	promptFile       = "prompt.json"
	qualityFile      = "quality.json"
	executionLogFile = "execution_log.json"
	outputLockFile   = ".promptflow.lock"

	lockRetryDelay = 50 * time.Millisecond
	lockTimeout    = 10 * time.Second
)

// writeArtifacts stores the prompt, quality report, and execution log of res
// in dir while holding an exclusive lock on the directory.
func writeArtifacts(ctx context.Context, dir string, res *workflow.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", dir, err)
	}

	lock := flock.New(filepath.Join(dir, outputLockFile))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock output directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("output directory %s is locked by another run", dir)
	}
	defer func() { _ = lock.Unlock() }()

	type artifact struct {
		name  string
		value any
	}
	var files []artifact
	if res.FinalPrompt != nil {
		files = append(files, artifact{promptFile, res.FinalPrompt})
	}
	if res.QualityReport != nil {
		files = append(files, artifact{qualityFile, res.QualityReport})
	}
	files = append(files, artifact{executionLogFile, res.Log})

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeJSONFile(path, f.value); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeJSONFile(path string, v any) error {
	data, err := marshalJSON(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
