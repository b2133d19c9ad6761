package output

import (
	"io"
	"os"
	"sync"

	"github.com/go-faster/errors"
	"github.com/gofrs/flock"
)

// LineSink receives complete report lines without a trailing newline.
type LineSink interface {
	WriteLine(line string) error
}

// WriterSink writes lines to an io.Writer, typically stdout.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

// FileSink appends lines to a file while holding an exclusive advisory lock,
// so that concurrent runs sharing one output file never interleave lines.
// The flock handle is per process; mu serializes writers within it.
type FileSink struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewFileSink starts a fresh output file, discarding any previous content.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create output file")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "create output file")
	}
	return &FileSink{path: path, lock: flock.New(path)}, nil
}

// Path returns the output file path.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return errors.Wrap(err, "lock output file")
	}
	defer s.lock.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open output file")
	}
	if _, err := io.WriteString(f, line+"\n"); err != nil {
		f.Close()
		return errors.Wrap(err, "write output file")
	}
	return f.Close()
}

// Close releases the lock handle.
func (s *FileSink) Close() error {
	return s.lock.Close()
}

type multiSink []LineSink

// MultiSink writes every line to all sinks in order. A failing sink does not
// stop the others; the first error is returned.
func MultiSink(sinks ...LineSink) LineSink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return multiSink(sinks)
}

func (m multiSink) WriteLine(line string) error {
	var first error
	for _, s := range m {
		if err := s.WriteLine(line); err != nil && first == nil {
			first = err
		}
	}
	return first
}
