package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/equirender/media"
)

func testInfo(name string) media.InputVideoInfo {
	return media.InputVideoInfo{Filename: name, IsValid: true, MatchesFormat: true, Duration: 60}
}

func recordChanges(v *Video) *[]Field {
	var fields []Field
	v.Subscribe(func(c Change) { fields = append(fields, c.Field) })
	return &fields
}

func TestAddAndRemoveVideo(t *testing.T) {
	p := New()

	var events []Event
	p.Subscribe(func(e Event) { events = append(events, e) })

	a := p.AddVideo(testInfo("a.360"))
	b := p.AddVideo(testInfo("b.360"))

	assert.Equal(t, KindReal, a.Kind())
	assert.True(t, a.Enabled())
	assert.Equal(t, []*Video{a, b}, p.Videos())

	require.NoError(t, p.RemoveVideo(a))
	assert.Equal(t, []*Video{b}, p.Videos())
	assert.False(t, p.Contains(a))

	require.Len(t, events, 3)
	assert.Equal(t, EventVideoAdded, events[0].Type)
	assert.Same(t, a, events[0].Video)
	assert.Equal(t, EventVideoRemoved, events[2].Type)
	assert.Same(t, a, events[2].Video)
}

func TestRemoveVideoFromForeignPool(t *testing.T) {
	first := New()
	second := New()

	v := first.AddVideo(testInfo("GS010176.360"))

	err := second.RemoveVideo(v)
	assert.ErrorIs(t, err, ErrNotOwned)
	assert.True(t, first.Contains(v), "video must stay registered in its own pool")
}

func TestRemoveVideoTwiceAndSentinels(t *testing.T) {
	p := New()
	v := p.AddVideo(testInfo("a.360"))

	require.NoError(t, p.RemoveVideo(v))
	assert.ErrorIs(t, p.RemoveVideo(v), ErrNotOwned)
	assert.ErrorIs(t, p.RemoveVideo(Placeholder()), ErrNotOwned)
	assert.ErrorIs(t, p.RemoveVideo(Dummy()), ErrNotOwned)
	assert.ErrorIs(t, p.RemoveVideo(nil), ErrNotOwned)
}

func TestRemoveDetachesSubscribers(t *testing.T) {
	p := New()
	v := p.AddVideo(testInfo("a.360"))
	fields := recordChanges(v)

	require.NoError(t, p.RemoveVideo(v))
	v.SetRotation(media.FrameRotation{Yaw: 10})

	assert.Empty(t, *fields)
}

func TestChangeNotifications(t *testing.T) {
	p := New()
	v := p.AddVideo(testInfo("a.360"))
	fields := recordChanges(v)

	v.SetRotation(media.FrameRotation{Yaw: 45})
	assert.Equal(t, []Field{FieldRotation, FieldSettings}, *fields)

	*fields = nil
	v.SetCrop(media.TimelineCrop{Start: media.Seconds(5)})
	assert.Equal(t, []Field{FieldCrop, FieldSettings}, *fields)

	*fields = nil
	v.SetEnabled(false)
	assert.Equal(t, []Field{FieldEnabled}, *fields, "enabled changes do not raise settings changed")
}

func TestNoOpWritesAreSilent(t *testing.T) {
	p := New()
	v := p.AddVideo(testInfo("a.360"))
	v.SetRotation(media.FrameRotation{Pitch: 5})
	v.SetCrop(media.NewCrop(1, 2))

	fields := recordChanges(v)
	v.SetRotation(media.FrameRotation{Pitch: 5})
	v.SetCrop(media.NewCrop(1, 2))
	v.SetEnabled(true)

	assert.Empty(t, *fields)
}

func TestUnsubscribe(t *testing.T) {
	p := New()
	v := p.AddVideo(testInfo("a.360"))

	calls := 0
	cancel := v.Subscribe(func(Change) { calls++ })
	v.SetEnabled(false)
	cancel()
	v.SetEnabled(true)

	assert.Equal(t, 1, calls)
}

func TestHasNonDefaultSettings(t *testing.T) {
	tests := []struct {
		name   string
		rot    media.FrameRotation
		crop   media.TimelineCrop
		expect bool
	}{
		{"defaults", media.FrameRotation{}, media.TimelineCrop{}, false},
		{"rotation", media.FrameRotation{Roll: 1}, media.TimelineCrop{}, true},
		{"zero start", media.FrameRotation{}, media.TimelineCrop{Start: media.Seconds(0)}, false},
		{"start", media.FrameRotation{}, media.TimelineCrop{Start: media.Seconds(3)}, true},
		{"end at duration", media.FrameRotation{}, media.TimelineCrop{End: media.Seconds(60)}, false},
		{"end before duration", media.FrameRotation{}, media.TimelineCrop{End: media.Seconds(30)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New().AddVideo(testInfo("a.360"))
			v.SetRotation(tt.rot)
			v.SetCrop(tt.crop)
			assert.Equal(t, tt.expect, v.HasNonDefaultSettings())
		})
	}
}

func TestCropIsNormalizedOnEdit(t *testing.T) {
	v := New().AddVideo(testInfo("a.360"))
	v.SetCrop(media.NewCrop(50, 10))

	crop := v.Crop()
	require.NotNil(t, crop.Start)
	require.NotNil(t, crop.End)
	assert.Equal(t, 10.0, *crop.Start)
	assert.Equal(t, 50.0, *crop.End)
}

func TestSentinels(t *testing.T) {
	assert.Equal(t, KindPlaceholder, Placeholder().Kind())
	assert.True(t, Placeholder().Info().IsPlaceholder())
	assert.Same(t, Placeholder(), Placeholder())

	d := Dummy()
	assert.Equal(t, KindDummy, d.Kind())
	assert.Equal(t, "GS010176.360", d.Filename())

	before := d.Rotation()
	d.SetRotation(media.FrameRotation{Yaw: -1})
	assert.Equal(t, before, d.Rotation(), "sentinels ignore writes")
}

func TestSettingsSnapshotIsDetached(t *testing.T) {
	v := New().AddVideo(testInfo("a.360"))
	v.SetCrop(media.NewCrop(1, 20))

	snap := v.Settings()
	*snap.Crop.Start = 15

	assert.Equal(t, 1.0, *v.Crop().Start)
	assert.Same(t, v, snap.Video)
}
