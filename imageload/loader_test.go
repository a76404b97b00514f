package imageload

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/phanxgames/labeler"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T, recs ...labeler.Record) []*labeler.Node {
	t.Helper()
	tree := labeler.NewTree()
	var out []*labeler.Node
	for _, r := range recs {
		n, err := tree.InsertImage(r)
		require.NoError(t, err)
		out = append(out, n)
	}
	return out
}

func writeImage(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))
}

func TestLoader_LoadsAndDrains(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "a.png", 8, 4)
	writeImage(t, dir, "b.png", 2, 2)
	nodes := newTree(t,
		labeler.Record{"filename": labeler.StringValue("a.png")},
		labeler.Record{"picName": labeler.StringValue("b.png")},
	)

	l := New(Options{Dir: dir})
	l.Start(context.Background(), nodes)
	l.Wait()
	require.Equal(t, 0, l.Pending())

	got := map[*labeler.Node]image.Image{}
	n := l.Drain(func(node *labeler.Node, img image.Image, err error) {
		require.NoError(t, err)
		got[node] = img
	})
	require.Equal(t, 2, n)
	require.Equal(t, image.Rect(0, 0, 8, 4), got[nodes[0]].Bounds())
	require.Equal(t, image.Rect(0, 0, 2, 2), got[nodes[1]].Bounds())
	require.True(t, nodes[0].Loaded())
	require.True(t, l.Loaded(nodes[1]))

	// Completions are delivered once.
	require.Equal(t, 0, l.Drain(func(*labeler.Node, image.Image, error) { t.Fatal("drained twice") }))
}

func TestLoader_NoSource(t *testing.T) {
	nodes := newTree(t, labeler.Record{"other": labeler.StringValue("x")})
	l := New(Options{})
	l.Start(context.Background(), nodes)
	l.Wait()

	var gotErr error
	l.Drain(func(_ *labeler.Node, _ image.Image, err error) { gotErr = err })
	require.ErrorIs(t, gotErr, ErrNoSource)
	require.False(t, l.Loaded(nodes[0]))
}

func TestLoader_Retries(t *testing.T) {
	var calls atomic.Int32
	open := func(string) (image.Image, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("flaky")
		}
		return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
	}
	nodes := newTree(t, labeler.Record{"path": labeler.StringValue("/x.png")})
	l := New(Options{Open: open})
	l.Load(context.Background(), nodes[0])
	l.Wait()

	require.Equal(t, int32(3), calls.Load())
	require.True(t, l.Loaded(nodes[0]))
}

func TestLoader_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	open := func(string) (image.Image, error) {
		calls.Add(1)
		return nil, errors.New("broken")
	}
	nodes := newTree(t, labeler.Record{"path": labeler.StringValue("/x.png")})
	l := New(Options{Open: open, Attempts: 2})
	l.Load(context.Background(), nodes[0])
	l.Wait()

	var gotErr error
	require.Equal(t, 1, l.Drain(func(_ *labeler.Node, _ image.Image, err error) { gotErr = err }))
	require.Error(t, gotErr)
	require.Equal(t, int32(2), calls.Load())
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	nodes := newTree(t, labeler.Record{"path": labeler.StringValue("/x.png")})
	l := New(Options{Open: func(string) (image.Image, error) {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
	}})
	l.Load(ctx, nodes[0])
	l.Wait()

	var gotErr error
	l.Drain(func(_ *labeler.Node, _ image.Image, err error) { gotErr = err })
	require.ErrorIs(t, gotErr, context.Canceled)
}

func TestLoader_SkipsLoadedAndNonImages(t *testing.T) {
	var calls atomic.Int32
	open := func(string) (image.Image, error) {
		calls.Add(1)
		return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
	}
	tree := labeler.NewTree()
	img, err := tree.InsertImage(labeler.Record{"path": labeler.StringValue("/x.png")})
	require.NoError(t, err)
	ann, err := tree.AddAnnotation(img, labeler.Record{"path": labeler.StringValue("/y.png")})
	require.NoError(t, err)

	l := New(Options{Open: open})
	l.Start(context.Background(), []*labeler.Node{img, ann})
	l.Wait()
	l.Load(context.Background(), img)
	l.Wait()

	require.Equal(t, int32(1), calls.Load())
	l.Forget(img)
	require.False(t, l.Loaded(img))
}

func TestLoader_ImplementsPixelSource(t *testing.T) {
	var _ labeler.PixelSource = New(Options{})
}
