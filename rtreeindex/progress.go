package rtreeindex

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ProgressWriter creates progress trackers for bulk build operations
// (§4.3.1). Callers that never build very large trees can leave the
// package default (quiet) in place.
type ProgressWriter interface {
	NewCountProgress(total int64, description string) Progress
}

// Progress is an active progress tracker.
type Progress interface {
	io.Writer
	Add(num int)
	Close() error
}

var (
	progressWriterMu sync.RWMutex
	progressWriter   ProgressWriter = &quietProgressWriter{}
)

// SetProgressWriter installs a custom progress writer for Build calls
// across the package. Pass nil to restore the quiet default.
func SetProgressWriter(pw ProgressWriter) {
	progressWriterMu.Lock()
	defer progressWriterMu.Unlock()
	if pw == nil {
		progressWriter = &quietProgressWriter{}
	} else {
		progressWriter = pw
	}
}

func getProgressWriter() ProgressWriter {
	progressWriterMu.RLock()
	defer progressWriterMu.RUnlock()
	return progressWriter
}

type quietProgressWriter struct{}

func (quietProgressWriter) NewCountProgress(int64, string) Progress {
	return quietProgress{}
}

type quietProgress struct{}

func (quietProgress) Write(p []byte) (int, error) { return len(p), nil }
func (quietProgress) Add(int)                     {}
func (quietProgress) Close() error                 { return nil }

// defaultProgressWriter renders a terminal progress bar via
// schollz/progressbar, the same library the storage layer uses for
// bulk clustering operations.
type defaultProgressWriter struct{}

// NewDefaultProgressWriter enables a visible terminal progress bar for
// Build calls, mirroring the storage layer's cluster/convert UX.
func NewDefaultProgressWriter() ProgressWriter {
	return &defaultProgressWriter{}
}

func (defaultProgressWriter) NewCountProgress(total int64, description string) Progress {
	return &progressBarWrapper{bar: progressbar.Default(total, description)}
}

// progressBarWrapper adapts *progressbar.ProgressBar to Progress.
type progressBarWrapper struct {
	bar *progressbar.ProgressBar
}

func (p *progressBarWrapper) Write(data []byte) (int, error) {
	if p.bar == nil {
		return len(data), nil
	}
	return p.bar.Write(data)
}

func (p *progressBarWrapper) Add(num int) {
	if p.bar != nil {
		p.bar.Add(num)
	}
}

func (p *progressBarWrapper) Close() error {
	if p.bar != nil {
		return p.bar.Close()
	}
	return nil
}
