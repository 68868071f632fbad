package viewer

import (
	"errors"
	"sync"

	"github.com/aafarian/hantibink-sub003/internal/domain/model"
)

var ErrNoPhotos = errors.New("no photos to view")

// Gate is the blocking-modal hook of the notice center.
type Gate interface {
	AcquireGate() func()
}

// Viewer is the full-screen photo viewer state. While open it counts as a
// blocking modal, so deferred notices wait for it.
type Viewer struct {
	mu      sync.Mutex
	gate    Gate
	photos  []model.Photo
	index   int
	open    bool
	release func()
}

func New(gate Gate) *Viewer {
	return &Viewer{gate: gate}
}

func (v *Viewer) Open(photos []model.Photo, index int) error {
	if len(photos) == 0 {
		return ErrNoPhotos
	}
	if index < 0 || index >= len(photos) {
		index = 0
	}

	v.mu.Lock()
	previous := v.release
	v.photos = photos
	v.index = index
	v.open = true
	v.release = nil
	if v.gate != nil {
		v.release = v.gate.AcquireGate()
	}
	v.mu.Unlock()

	if previous != nil {
		previous()
	}
	return nil
}

func (v *Viewer) Next() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open && v.index < len(v.photos)-1 {
		v.index++
	}
}

func (v *Viewer) Prev() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open && v.index > 0 {
		v.index--
	}
}

func (v *Viewer) Current() (model.Photo, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open {
		return model.Photo{}, false
	}
	return v.photos[v.index], true
}

func (v *Viewer) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

func (v *Viewer) Close() {
	v.mu.Lock()
	release := v.release
	v.photos = nil
	v.index = 0
	v.open = false
	v.release = nil
	v.mu.Unlock()

	if release != nil {
		release()
	}
}
