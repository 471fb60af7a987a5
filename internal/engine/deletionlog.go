package engine

import (
	"fmt"
	"time"

	"github.com/sfwani/lockdown/internal/hostfs"
)

// DeletionLog is the append-only forensic record of account deletions.
// One "name<TAB>RFC3339 timestamp" line per deletion, written exactly
// once when the delete transition succeeds. Nothing reads it back.
type DeletionLog struct {
	path string
	now  func() time.Time
}

func NewDeletionLog(path string) *DeletionLog {
	return &DeletionLog{path: path, now: time.Now}
}

func (d *DeletionLog) Path() string { return d.path }

func (d *DeletionLog) Append(name string) error {
	ts := d.now().UTC().Format(time.RFC3339)
	return hostfs.AppendLine(d.path, fmt.Sprintf("%s\t%s", name, ts), 0600)
}
