// Package imageload decodes the pixels of labeler Image nodes in the
// background and hands completions back to the editor's thread.
package imageload

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/phanxgames/labeler"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
)

const (
	defaultConcurrency = 4
	defaultAttempts    = 3
)

// DefaultKeys are the Record keys tried, in order, for an image's file.
var DefaultKeys = []string{"filename", "path", "picName"}

// ErrNoSource is returned when an Image Record names no file.
var ErrNoSource = errors.New("imageload: no source")

// Options configures a Loader. Zero values pick defaults.
type Options struct {
	// Dir is joined to relative file names.
	Dir string
	// Keys are the Record keys naming the file, tried in order.
	Keys []string
	// Concurrency bounds the number of simultaneous decodes.
	Concurrency int64
	// Attempts is how often a failing decode is tried before giving up.
	Attempts int
	Logger   *slog.Logger
	// Open decodes a file. Defaults to imaging.Open.
	Open func(path string) (image.Image, error)
}

type completion struct {
	node *labeler.Node
	img  image.Image
	err  error
}

// Loader decodes images on background goroutines. Nodes are only touched on
// the calling thread: Start resolves file names before spawning, and
// results come back through Drain.
type Loader struct {
	opts Options
	sem  *semaphore.Weighted
	wg   sync.WaitGroup

	mu       sync.Mutex
	images   map[*labeler.Node]image.Image
	inflight map[*labeler.Node]bool
	done     []completion
}

// New returns an idle Loader.
func New(opts Options) *Loader {
	if len(opts.Keys) == 0 {
		opts.Keys = DefaultKeys
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Open == nil {
		opts.Open = func(path string) (image.Image, error) { return imaging.Open(path) }
	}
	return &Loader{
		opts:     opts,
		sem:      semaphore.NewWeighted(opts.Concurrency),
		images:   make(map[*labeler.Node]image.Image),
		inflight: make(map[*labeler.Node]bool),
	}
}

// Source returns the file an Image node refers to.
func (l *Loader) Source(n *labeler.Node) (string, error) {
	for _, k := range l.opts.Keys {
		v, ok := n.Get(k)
		if !ok || v.AsString() == "" {
			continue
		}
		p := v.AsString()
		if !filepath.IsAbs(p) && l.opts.Dir != "" {
			p = filepath.Join(l.opts.Dir, p)
		}
		return p, nil
	}
	return "", fmt.Errorf("imageload: %s: %w", n, ErrNoSource)
}

// Start begins loading every node not already loaded or loading. It
// returns immediately.
func (l *Loader) Start(ctx context.Context, nodes []*labeler.Node) {
	for _, n := range nodes {
		l.Load(ctx, n)
	}
}

// Load begins loading n unless it is already loaded or loading.
func (l *Loader) Load(ctx context.Context, n *labeler.Node) {
	if n == nil || n.Kind() != labeler.KindImage {
		return
	}
	l.mu.Lock()
	_, have := l.images[n]
	busy := l.inflight[n]
	if !have && !busy {
		l.inflight[n] = true
	}
	l.mu.Unlock()
	if have || busy {
		return
	}

	path, err := l.Source(n)
	if err != nil {
		l.finish(completion{node: n, err: err})
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		img, err := l.decode(ctx, path)
		l.finish(completion{node: n, img: img, err: err})
	}()
}

func (l *Loader) decode(ctx context.Context, path string) (image.Image, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("imageload: %s: %w", path, err)
	}
	defer l.sem.Release(1)

	var err error
	for attempt := 1; attempt <= l.opts.Attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("imageload: %s: %w", path, ctx.Err())
		}
		var img image.Image
		img, err = l.opts.Open(path)
		if err == nil {
			return img, nil
		}
		l.opts.Logger.Debug("imageload: decode failed", "path", path, "attempt", attempt, "err", err)
	}
	return nil, fmt.Errorf("imageload: %s after %d attempts: %w", path, l.opts.Attempts, err)
}

func (l *Loader) finish(c completion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, c.node)
	if c.err == nil {
		l.images[c.node] = c.img
	}
	l.done = append(l.done, c)
}

// Image returns the decoded pixels of n. It implements
// labeler.ImageProvider.
func (l *Loader) Image(n *labeler.Node) (image.Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	img, ok := l.images[n]
	return img, ok
}

// Loaded reports whether n's pixels are available.
func (l *Loader) Loaded(n *labeler.Node) bool {
	_, ok := l.Image(n)
	return ok
}

// Pending returns the number of loads still running.
func (l *Loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight)
}

// Drain passes every completion since the last call to fn, on the caller's
// thread, and returns how many there were. Each load completes exactly once.
func (l *Loader) Drain(fn func(n *labeler.Node, img image.Image, err error)) int {
	l.mu.Lock()
	done := l.done
	l.done = nil
	l.mu.Unlock()
	for _, c := range done {
		if c.err == nil {
			c.node.SetLoaded(true)
		}
		fn(c.node, c.img, c.err)
	}
	return len(done)
}

// Forget drops the pixels of n so a later Load decodes it again.
func (l *Loader) Forget(n *labeler.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.images, n)
}

// Wait blocks until every started load has finished.
func (l *Loader) Wait() { l.wg.Wait() }
