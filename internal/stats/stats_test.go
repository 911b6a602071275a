package stats

import (
	"testing"
	"time"
)

func TestSummarizePercentiles(t *testing.T) {
	snap := Summarize([]int64{500, 100, 300, 200, 400})
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.Min != 100 {
		t.Fatalf("expected min=100, got %d", snap.Min)
	}
	if snap.Max != 500 {
		t.Fatalf("expected max=500, got %d", snap.Max)
	}
	if snap.Avg != 300 {
		t.Fatalf("expected avg=300, got %f", snap.Avg)
	}
	if snap.P50 != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50)
	}
	if snap.P95 != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95)
	}
	if snap.P99 != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99)
	}
	if snap.Sum != 1500 {
		t.Fatalf("expected sum=1500, got %d", snap.Sum)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if snap := Summarize(nil); snap.Count != 0 || snap.Max != 0 {
		t.Fatalf("expected zero summary, got %+v", snap)
	}
}

func TestSummarizeDoesNotReorderInput(t *testing.T) {
	in := []int64{3, 1, 2}
	Summarize(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Fatalf("expected input untouched, got %v", in)
	}
}

func TestPercentileBounds(t *testing.T) {
	v := []int64{10, 20}
	if p := Percentile(v, 0); p != 10 {
		t.Fatalf("expected p0=10, got %f", p)
	}
	if p := Percentile(v, 100); p != 20 {
		t.Fatalf("expected p100=20, got %f", p)
	}
	if p := Percentile([]int64{7}, 50); p != 7 {
		t.Fatalf("expected single-sample p50=7, got %f", p)
	}
}

func TestWindowPrunesExpiredSamples(t *testing.T) {
	w := NewWindow(10 * time.Millisecond)
	w.Record(100)
	time.Sleep(25 * time.Millisecond)

	snap := w.Snapshot()
	if snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	w.Record(200)
	snap = w.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1 for fresh sample, got %d", snap.Count)
	}
	if snap.Min != 200 || snap.Max != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.Min, snap.Max)
	}
}

func TestWindowRecordClampsNegativeDuration(t *testing.T) {
	w := NewWindow(time.Hour)
	w.Record(-10)
	snap := w.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.Min != 0 || snap.Max != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.Min, snap.Max)
	}
}
