// Package cleanup deletes temporary files left behind by the paste pipeline.
package cleanup

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Beijizb/obsidian-image-beiji/internal/logging"
)

// Warning describes a deletion that failed. It is logged, never returned.
type Warning struct {
	Path string
	Err  error
}

func (w *Warning) Error() string {
	return "failed to remove temporary file " + w.Path + ": " + w.Err.Error()
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// Cleaner removes files asynchronously on a best-effort basis.
// The zero value is not usable; call New.
type Cleaner struct {
	wg     sync.WaitGroup
	log    *logrus.Entry
	remove func(string) error

	// OnWarning, when set, receives every deletion failure after it is logged.
	OnWarning func(*Warning)
}

// New returns a Cleaner that deletes with os.Remove.
func New() *Cleaner {
	return &Cleaner{
		log:    logging.For("cleanup"),
		remove: os.Remove,
	}
}

// Clean schedules path for deletion and returns immediately. Empty or
// missing paths are a silent no-op, so calling Clean twice is harmless.
func (c *Cleaner) Clean(path string) {
	if path == "" {
		return
	}
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			c.log.WithField("path", path).Debug("removed temporary file")
			return
		}
		w := &Warning{Path: path, Err: err}
		c.log.WithField("path", path).Warn(w.Error())
		if c.OnWarning != nil {
			c.OnWarning(w)
		}
	}()
}

// Wait blocks until every scheduled deletion has finished.
func (c *Cleaner) Wait() {
	c.wg.Wait()
}
