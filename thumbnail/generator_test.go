package thumbnail

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/process/processtest"
)

func inputOf(args []string) string {
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// fakeFFmpeg writes "thumb:<input>" to the output path, failing for inputs in fail.
func fakeFFmpeg(delay time.Duration, fail ...string) *processtest.Launcher {
	return &processtest.Launcher{Handler: func(_ string, args []string) processtest.Script {
		input := inputOf(args)
		for _, f := range fail {
			if input == f {
				return processtest.Script{ExitCode: 1}
			}
		}
		return processtest.Script{
			Delay: delay,
			Effect: func(args []string) error {
				return os.WriteFile(args[len(args)-1], []byte("thumb:"+input), 0644)
			},
		}
	}}
}

func video(name string) media.InputVideoInfo {
	return media.InputVideoInfo{Filename: name, IsValid: true, Duration: 30}
}

func TestWorkerCountNeverExceedsLimit(t *testing.T) {
	const jobs, limit = 12, 3

	l := fakeFFmpeg(20 * time.Millisecond)
	g := New(Options{Launcher: l, MaxWorkers: func() int { return limit }, TempDir: t.TempDir()})

	results := make([]<-chan []byte, jobs)
	for i := range results {
		results[i] = g.Queue(video(fmt.Sprintf("v%02d.360", i)), 1000)
	}

	for i, ch := range results {
		select {
		case data := <-ch:
			assert.Equal(t, fmt.Sprintf("thumb:v%02d.360", i), string(data))
		case <-time.After(5 * time.Second):
			t.Fatalf("job %d never resolved", i)
		}
	}

	assert.LessOrEqual(t, g.PeakWorkers(), limit)
	assert.LessOrEqual(t, l.Peak(), limit)
	assert.Len(t, l.Calls(), jobs, "every job ran exactly once")
	assert.Eventually(t, func() bool { return g.LiveWorkers() == 0 }, time.Second, 5*time.Millisecond,
		"workers exit when the queue is empty")
	assert.Zero(t, g.Pending())
}

func TestConcurrentProducersRespectLimit(t *testing.T) {
	const producers, perProducer, limit = 8, 5, 2

	l := fakeFFmpeg(5 * time.Millisecond)
	g := New(Options{Launcher: l, MaxWorkers: func() int { return limit }, TempDir: t.TempDir()})

	var wg sync.WaitGroup
	var mu sync.Mutex
	resolved := 0
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				<-g.Queue(video(fmt.Sprintf("p%d-%d.360", p, i)), 0)
				mu.Lock()
				resolved++
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, resolved)
	assert.LessOrEqual(t, g.PeakWorkers(), limit)
	assert.LessOrEqual(t, l.Peak(), limit)
}

func TestWorkersRespawnForNewBurst(t *testing.T) {
	g := New(Options{Launcher: fakeFFmpeg(0), MaxWorkers: func() int { return 1 }, TempDir: t.TempDir()})

	<-g.Queue(video("a.360"), 0)
	require.Eventually(t, func() bool { return g.LiveWorkers() == 0 }, time.Second, 5*time.Millisecond)

	data := <-g.Queue(video("b.360"), 0)
	assert.Equal(t, "thumb:b.360", string(data))
	assert.Equal(t, 2, g.Spawned())
}

func TestFailingJobResolvesNil(t *testing.T) {
	g := New(Options{Launcher: fakeFFmpeg(0, "bad.360"), MaxWorkers: func() int { return 1 }, TempDir: t.TempDir()})

	bad := g.Queue(video("bad.360"), 0)
	good := g.Queue(video("good.360"), 0)

	assert.Nil(t, <-bad)
	assert.Equal(t, "thumb:good.360", string(<-good), "a failing job does not stop the worker")

	_, open := <-bad
	assert.False(t, open, "result channels are closed after delivery")
	assert.Nil(t, g.Cached("bad.360"))
}

func TestCachedThumbnail(t *testing.T) {
	g := New(Options{Launcher: fakeFFmpeg(0), TempDir: t.TempDir()})

	assert.Nil(t, g.Cached("never-submitted.360"))

	data := <-g.Queue(video("a.360"), 500)
	require.NotNil(t, data)
	assert.Equal(t, data, g.Cached("a.360"))

	v := pool.New().AddVideo(video("a.360"))
	assert.Equal(t, data, g.CachedFor(v))

	g.ClearCache()
	assert.Nil(t, g.Cached("a.360"))
	assert.NotNil(t, g.Cached(media.PlaceholderFilename))
}

func TestPlaceholderIsPreSeeded(t *testing.T) {
	l := fakeFFmpeg(0)
	g := New(Options{Launcher: l, Width: 64, TempDir: t.TempDir()})

	data := g.Cached(media.PlaceholderFilename)
	require.NotEmpty(t, data)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	assert.Equal(t, data, <-g.Queue(pool.Placeholder().Info(), 0))
	assert.Empty(t, l.Calls(), "the placeholder never reaches ffmpeg")
}

func TestQueueVideoPosition(t *testing.T) {
	l := fakeFFmpeg(0)
	g := New(Options{Launcher: l, TempDir: t.TempDir()})

	v := pool.New().AddVideo(video("a.360"))
	<-g.QueueVideo(v, 50)

	args := l.Calls()[0].Args
	assert.Contains(t, args, "15.000", "half of a 30 second video")
	assert.Contains(t, args, "nokey")
}

func TestClosedGeneratorResolvesNil(t *testing.T) {
	g := New(Options{Launcher: fakeFFmpeg(0), TempDir: t.TempDir()})
	g.Close()

	assert.Nil(t, <-g.Queue(video("a.360"), 0))
}
