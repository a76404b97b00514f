package labeler

import "testing"

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"after-draw", "after-draw"},
		{"after draw", "after_draw"},
		{"../etc/passwd", ".._etc_passwd"},
		{"v1.2", "v1.2"},
		{"  ", "unlabeled"},
		{"", "unlabeled"},
		{"ünï", "_n_"},
	}
	for _, tt := range tests {
		if got := sanitizeLabel(tt.in); got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnapshotQueue(t *testing.T) {
	c := newTestCanvas()
	c.Snapshot("one")
	c.Snapshot("two")
	if c.PendingSnapshots() != 2 {
		t.Errorf("PendingSnapshots = %d, want 2", c.PendingSnapshots())
	}
}

func TestSnapshotNamesAreUnique(t *testing.T) {
	c := newTestCanvas()
	first := c.snapshotName("20260101_120000", "same")
	second := c.snapshotName("20260101_120000", "same")
	if first == second {
		t.Errorf("snapshotName repeated %q", first)
	}
	if want := "20260101_120000_0001_same.png"; first != want {
		t.Errorf("first name = %q, want %q", first, want)
	}
	if want := "20260101_120000_0002_same.png"; second != want {
		t.Errorf("second name = %q, want %q", second, want)
	}
}

func TestUnpremultiply(t *testing.T) {
	src := []byte{
		64, 32, 0, 128,
		10, 20, 30, 255,
		0, 0, 0, 0,
		200, 200, 200, 100, // out of range input saturates
	}
	dst := make([]byte, len(src))
	unpremultiply(dst, src)
	want := []byte{
		127, 63, 0, 128,
		10, 20, 30, 255,
		0, 0, 0, 0,
		255, 255, 255, 100,
	}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], want[i])
		}
	}
}
