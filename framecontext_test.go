package mullion

import (
	"image"
	"testing"

	"github.com/rs/zerolog"
)

func newTestFrameContext(w, h int) (*FrameContext, *SoftwarePresenter) {
	pres := NewSoftwarePresenter(w, h)
	fc := newFrameContext(w, h, pres, nil, 1<<20, zerolog.Nop())
	return fc, pres
}

// --- Frame protocol ---

func TestFrameProtocolLifecycle(t *testing.T) {
	fc, pres := newTestFrameContext(64, 48)
	defer fc.Dispose()

	if got := fc.State(); got != FrameIdle {
		t.Fatalf("initial state = %v, want FrameIdle", got)
	}
	if !fc.BeginFrame(64, 48) {
		t.Fatal("BeginFrame refused on an idle context")
	}
	if got := fc.State(); got != FrameAcquired {
		t.Errorf("state mid-frame = %v, want FrameAcquired", got)
	}
	if fc.BeginFrame(64, 48) {
		t.Error("BeginFrame succeeded mid-frame, want refusal")
	}
	if err := fc.FinishAndPresent(); err != nil {
		t.Fatalf("FinishAndPresent: %v", err)
	}
	if got := fc.State(); got != FrameIdle {
		t.Errorf("state after present = %v, want FrameIdle", got)
	}
	if got := pres.Presented(); got != 1 {
		t.Errorf("presented = %d, want 1", got)
	}
}

func TestBeginFrameRefusesSizeMismatch(t *testing.T) {
	fc, _ := newTestFrameContext(64, 48)
	defer fc.Dispose()

	// A mismatched size means the caller has not committed its resize yet;
	// the frame is skipped, not clipped.
	if fc.BeginFrame(100, 100) {
		t.Fatal("BeginFrame accepted a size that does not match the drawable")
	}
	if got := fc.State(); got != FrameIdle {
		t.Errorf("state after refusal = %v, want FrameIdle", got)
	}
	if !fc.BeginFrame(64, 48) {
		t.Error("matching BeginFrame should succeed after a refusal")
	}
	fc.FinishAndPresent()
}

func TestFinishWithoutBeginFails(t *testing.T) {
	fc, pres := newTestFrameContext(32, 32)
	defer fc.Dispose()

	if err := fc.FinishAndPresent(); err != ErrMidFrame {
		t.Errorf("FinishAndPresent without a frame = %v, want ErrMidFrame", err)
	}
	if got := pres.Presented(); got != 0 {
		t.Errorf("presented = %d, want 0", got)
	}
}

func TestSetDrawableSizeBetweenFramesOnly(t *testing.T) {
	fc, _ := newTestFrameContext(64, 48)
	defer fc.Dispose()

	fc.BeginFrame(64, 48)
	if err := fc.SetDrawableSize(128, 96); err != ErrMidFrame {
		t.Errorf("resize mid-frame = %v, want ErrMidFrame", err)
	}
	fc.FinishAndPresent()

	if err := fc.SetDrawableSize(128, 96); err != nil {
		t.Fatalf("resize between frames: %v", err)
	}
	if w, h := fc.DrawableSize(); w != 128 || h != 96 {
		t.Errorf("drawable = %dx%d, want 128x96", w, h)
	}
	if err := fc.SetDrawableSize(128, 96); err != nil {
		t.Errorf("same-size resize = %v, want nil no-op", err)
	}
	if !fc.BeginFrame(128, 96) {
		t.Error("BeginFrame at the new size should succeed")
	}
	fc.FinishAndPresent()
}

func TestCaptureIsNilMidFrame(t *testing.T) {
	fc, _ := newTestFrameContext(64, 48)
	defer fc.Dispose()

	fc.BeginFrame(64, 48)
	if fc.Capture() != nil {
		t.Error("Capture mid-frame should return nil")
	}
	fc.FinishAndPresent()

	img := fc.Capture()
	if img == nil {
		t.Fatal("Capture between frames returned nil")
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("capture size = %dx%d, want 64x48", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestBackgroundClearColor(t *testing.T) {
	fc, _ := newTestFrameContext(16, 16)
	defer fc.Dispose()

	fc.SetBackground(Color{1, 0, 0, 1})
	fc.BeginFrame(16, 16)
	if err := fc.FinishAndPresent(); err != nil {
		t.Fatalf("FinishAndPresent: %v", err)
	}

	img := fc.Capture()
	if img == nil {
		t.Fatal("Capture returned nil")
	}
	r, g, b, _ := img.At(8, 8).RGBA()
	if r>>8 != 0xff || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("pixel = %04x/%04x/%04x, want pure red background", r, g, b)
	}
}

func TestDisposeIsIdempotentAndTerminal(t *testing.T) {
	fc, _ := newTestFrameContext(32, 32)

	if err := fc.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := fc.Dispose(); err != nil {
		t.Errorf("second Dispose = %v, want nil", err)
	}
	if fc.BeginFrame(32, 32) {
		t.Error("BeginFrame succeeded on a disposed context")
	}
	if err := fc.SetDrawableSize(64, 64); err != ErrContextDisposed {
		t.Errorf("resize after dispose = %v, want ErrContextDisposed", err)
	}
	if fc.Capture() != nil {
		t.Error("Capture after dispose should return nil")
	}
}

// --- Cache ledger ---

func TestCacheLedgerBudget(t *testing.T) {
	l := newLedger(1000)

	if !l.tryCharge(600) {
		t.Fatal("charge within budget refused")
	}
	if l.tryCharge(600) {
		t.Error("charge beyond budget accepted")
	}
	if !l.tryCharge(400) {
		t.Error("charge up to the exact budget refused")
	}
	if got := l.bytes.Load(); got != 1000 {
		t.Errorf("bytes = %d, want 1000", got)
	}
	if got := l.count.Load(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}

	l.credit(600)
	if got := l.bytes.Load(); got != 400 {
		t.Errorf("bytes after credit = %d, want 400", got)
	}
	if got := l.count.Load(); got != 1 {
		t.Errorf("count after credit = %d, want 1", got)
	}
}

func TestCacheLedgerZeroBudgetRejects(t *testing.T) {
	l := newLedger(0)
	if l.tryCharge(1) {
		t.Error("zero budget accepted a charge")
	}
}

func TestDrawListDisposeCreditsOnce(t *testing.T) {
	l := newLedger(1000)
	dl := chargedList(t, l, 250)

	if got := l.bytes.Load(); got != 250 {
		t.Fatalf("bytes after charge = %d, want 250", got)
	}
	dl.dispose()
	if got := l.bytes.Load(); got != 0 {
		t.Errorf("bytes after dispose = %d, want 0", got)
	}
	if got := l.count.Load(); got != 0 {
		t.Errorf("count after dispose = %d, want 0", got)
	}

	// Second dispose must not double-credit.
	dl.dispose()
	if got := l.bytes.Load(); got != 0 {
		t.Errorf("bytes after double dispose = %d, want 0", got)
	}

	var nilList *drawList
	nilList.dispose() // no-op
}

// --- Purging ---

func TestForceFullPurge(t *testing.T) {
	fc, _ := newTestFrameContext(32, 32)
	defer fc.Dispose()

	fc.pool.release(image.NewRGBA(image.Rect(0, 0, 64, 64)))
	if fc.pool.pooledBytes() == 0 {
		t.Fatal("pool should hold the released buffer")
	}
	gen := fc.PurgeGeneration()

	fc.ForceFullPurge()

	if got := fc.PurgeGeneration(); got != gen+1 {
		t.Errorf("purge generation = %d, want %d", got, gen+1)
	}
	if got := fc.pool.pooledBytes(); got != 0 {
		t.Errorf("pooled bytes after purge = %d, want 0", got)
	}
	// The budget is restored once the purge completes.
	if !fc.ledger.tryCharge(100) {
		t.Error("charges should succeed again after the purge")
	}
}

// --- Scratch pool ---

func TestScratchPoolRoundsUpToPow2(t *testing.T) {
	var p scratchPool

	img := p.acquire(100, 60)
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 64 {
		t.Fatalf("buffer = %dx%d, want 128x64", img.Bounds().Dx(), img.Bounds().Dy())
	}

	p.release(img)
	if got := p.pooledBytes(); got != 128*64*4 {
		t.Errorf("pooled bytes = %d, want %d", got, 128*64*4)
	}

	// Same size class: the pooled buffer comes back.
	again := p.acquire(120, 50)
	if again != img {
		t.Error("acquire should reuse the pooled buffer for the same size class")
	}
	if got := p.pooledBytes(); got != 0 {
		t.Errorf("pooled bytes after reuse = %d, want 0", got)
	}
}

func TestScratchPoolBucketCap(t *testing.T) {
	var p scratchPool
	for i := 0; i < maxScratchPerBucket+2; i++ {
		p.release(image.NewRGBA(image.Rect(0, 0, 64, 64)))
	}
	want := int64(maxScratchPerBucket) * 64 * 64 * 4
	if got := p.pooledBytes(); got != want {
		t.Errorf("pooled bytes = %d, want cap at %d", got, want)
	}
	p.release(nil) // no-op
}

func TestScratchPoolDrain(t *testing.T) {
	var p scratchPool
	p.release(image.NewRGBA(image.Rect(0, 0, 32, 32)))
	p.drain()
	if got := p.pooledBytes(); got != 0 {
		t.Errorf("pooled bytes after drain = %d, want 0", got)
	}
	if img := p.acquire(32, 32); img == nil {
		t.Error("acquire after drain should allocate fresh")
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{
		0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8,
		63: 64, 64: 64, 65: 128, 1000: 1024,
	}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}
