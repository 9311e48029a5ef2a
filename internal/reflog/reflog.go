// Package reflog implements the debug ref-logging facility: the
// original astobj2.c does not protect its ref-log file against
// concurrent writers, so this package serializes every line through a
// single mutex instead, so multiple goroutines bumping refcounts on
// the same or different objects never interleave partial writes.
package reflog

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Writer serializes ref-log lines to an underlying io.Writer (typically
// an *os.File opened in append mode by the embedder).
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	session uuid.UUID
}

// New wraps w with a session id stamped into every line, so logs from
// multiple processes appended to a shared file can be told apart.
func New(w io.Writer) *Writer {
	return &Writer{w: w, session: uuid.New()}
}

// Record appends one ref-log line: session, timestamp, object tag,
// delta applied, and resulting refcount. now is supplied by the caller
// so the writer itself never touches the clock.
func (w *Writer) Record(now time.Time, tag string, delta int64, result int64) {
	if w == nil {
		return
	}
	line := fmt.Sprintf("%s %s delta=%+d result=%d tag=%q\n",
		w.session, now.Format(time.RFC3339Nano), delta, result, tag)
	w.mu.Lock()
	defer w.mu.Unlock()
	io.WriteString(w.w, line)
}
