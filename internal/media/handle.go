package media

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/pkg/errors"
)

// Handle is a displayable resource for a selected file. Release runs its
// cleanup exactly once no matter how many exit paths call it.
type Handle struct {
	ref      string
	once     sync.Once
	released atomic.Bool
	release  func()
}

func NewHandle(ref string, release func()) *Handle {
	return &Handle{ref: ref, release: release}
}

// Ref is the location a viewer can open, e.g. a temp file path.
func (h *Handle) Ref() string { return h.ref }

func (h *Handle) Release() {
	h.once.Do(func() {
		h.released.Store(true)
		if h.release != nil {
			h.release()
		}
	})
}

func (h *Handle) Released() bool { return h.released.Load() }

// HandleFactory creates display handles for media content.
type HandleFactory interface {
	Acquire(a Asset) (*Handle, error)
}

// TempFiles writes each asset to a temporary file that is removed on release.
type TempFiles struct {
	Dir string
}

func (t TempFiles) Acquire(a Asset) (*Handle, error) {
	f, err := os.CreateTemp(t.Dir, "barrier-*"+Extension(a.Name, a.Data))
	if err != nil {
		return nil, errors.Wrap(err, "create media handle")
	}
	if _, err := f.Write(a.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, errors.Wrap(err, "write media handle")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, errors.Wrap(err, "close media handle")
	}

	path := f.Name()
	return NewHandle(path, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Log.WithError(err).WithField("path", path).Warn("media: release handle")
		}
	}), nil
}
