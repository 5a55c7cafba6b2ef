// File: internal/jobs/records.go
package jobs

import (
	"fmt"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Recorder appends one JSON line per application attempt to a local file.
// The file is the run's only persistent output; everything else lives and
// dies with the browser session.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

func NewRecorder(path string, logger *zap.Logger) (*Recorder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening records file %q: %w", path, err)
	}
	return &Recorder{file: file, logger: logger.Named("records")}, nil
}

// Record writes one attempt row. A write failure is reported but must not
// abort the run; the caller logs and moves to the next job.
func (r *Recorder) Record(record schemas.AttemptRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding attempt record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing attempt record: %w", err)
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
