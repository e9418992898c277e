package pool

import (
	"slices"
	"sync"
	"time"

	"github.com/lepinkainen/equirender/media"
)

// Kind tags what a Video handle stands for.
type Kind int

const (
	KindReal Kind = iota
	KindPlaceholder
	KindDummy
)

func (k Kind) String() string {
	switch k {
	case KindReal:
		return "real"
	case KindPlaceholder:
		return "placeholder"
	case KindDummy:
		return "dummy"
	default:
		return "unknown"
	}
}

// Field names the part of a Video that changed.
type Field string

const (
	FieldRotation Field = "rotation"
	FieldCrop     Field = "crop"
	FieldEnabled  Field = "enabled"
	// FieldSettings follows every rotation or crop change.
	FieldSettings Field = "settings"
)

// Change is delivered to Video subscribers.
type Change struct {
	Video *Video
	Field Field
}

// Settings is a consistent copy of a Video's state, safe to hand to workers.
type Settings struct {
	Video    *Video
	Info     media.InputVideoInfo
	Rotation media.FrameRotation
	Crop     media.TimelineCrop
	Enabled  bool
}

// Video is a pool entry. Only a Pool creates real videos.
type Video struct {
	owner *Pool
	kind  Kind
	info  media.InputVideoInfo

	mu       sync.RWMutex
	rotation media.FrameRotation
	crop     media.TimelineCrop
	enabled  bool

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(Change)
}

func newVideo(owner *Pool, kind Kind, info media.InputVideoInfo) *Video {
	return &Video{
		owner:   owner,
		kind:    kind,
		info:    info,
		enabled: kind == KindReal,
		subs:    make(map[int]func(Change)),
	}
}

var (
	placeholderVideo = newVideo(nil, KindPlaceholder, media.InputVideoInfo{
		Filename: media.PlaceholderFilename,
	})

	dummyVideo = func() *Video {
		v := newVideo(nil, KindDummy, media.InputVideoInfo{
			Filename:      "GS010176.360",
			IsValid:       true,
			MatchesFormat: true,
			Duration:      84.4,
			CreatedAt:     time.Date(2021, time.June, 5, 14, 32, 10, 0, time.UTC),
			Size:          1_743_249_408,
		})
		v.rotation = media.FrameRotation{Yaw: 90, Pitch: 0, Roll: 0}
		v.crop = media.NewCrop(12.5, 30)
		return v
	}()
)

// Placeholder returns the sentinel meaning "no video selected".
func Placeholder() *Video { return placeholderVideo }

// Dummy returns a sentinel with fixed synthetic data, used to preview
// filename patterns without a real file.
func Dummy() *Video { return dummyVideo }

func (v *Video) Kind() Kind                 { return v.kind }
func (v *Video) Info() media.InputVideoInfo { return v.info }
func (v *Video) Filename() string           { return v.info.Filename }

func (v *Video) Rotation() media.FrameRotation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rotation
}

func (v *Video) Crop() media.TimelineCrop {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.crop.Clone()
}

func (v *Video) Enabled() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.enabled
}

// HasNonDefaultSettings reports whether rotation or crop differ from the defaults.
func (v *Video) HasNonDefaultSettings() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.rotation.IsZero() {
		return true
	}
	if v.crop.Start != nil && *v.crop.Start != 0 {
		return true
	}
	if v.crop.End != nil && *v.crop.End != v.info.Duration {
		return true
	}
	return false
}

// Settings returns a snapshot of the video's current state.
func (v *Video) Settings() Settings {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Settings{
		Video:    v,
		Info:     v.info,
		Rotation: v.rotation,
		Crop:     v.crop.Clone(),
		Enabled:  v.enabled,
	}
}

// SetRotation replaces the rotation. Sentinels ignore writes.
func (v *Video) SetRotation(r media.FrameRotation) {
	if v.kind != KindReal {
		return
	}

	v.mu.Lock()
	if v.rotation == r {
		v.mu.Unlock()
		return
	}
	v.rotation = r
	v.mu.Unlock()

	v.emit(FieldRotation)
	v.emit(FieldSettings)
}

// SetCrop normalizes c against the video's duration and replaces the crop.
func (v *Video) SetCrop(c media.TimelineCrop) {
	if v.kind != KindReal {
		return
	}

	c = c.Normalize(v.info.Duration)

	v.mu.Lock()
	if v.crop.Equal(c) {
		v.mu.Unlock()
		return
	}
	v.crop = c
	v.mu.Unlock()

	v.emit(FieldCrop)
	v.emit(FieldSettings)
}

// SetEnabled toggles whether the video takes part in conversion.
func (v *Video) SetEnabled(enabled bool) {
	if v.kind != KindReal {
		return
	}

	v.mu.Lock()
	if v.enabled == enabled {
		v.mu.Unlock()
		return
	}
	v.enabled = enabled
	v.mu.Unlock()

	v.emit(FieldEnabled)
}

// Subscribe registers fn for change notifications. The returned func
// removes the subscription.
func (v *Video) Subscribe(fn func(Change)) func() {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	id := v.nextSubID
	v.nextSubID++
	v.subs[id] = fn

	return func() {
		v.subMu.Lock()
		defer v.subMu.Unlock()
		delete(v.subs, id)
	}
}

func (v *Video) detachSubscribers() {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	v.subs = make(map[int]func(Change))
}

func (v *Video) emit(field Field) {
	v.subMu.Lock()
	fns := inOrder(v.subs)
	v.subMu.Unlock()

	change := Change{Video: v, Field: field}
	for _, fn := range fns {
		fn(change)
	}
}

// inOrder returns subscriber funcs in subscription order.
func inOrder[T any](subs map[int]func(T)) []func(T) {
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, subs[id])
	}
	return fns
}
