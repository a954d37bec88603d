package series

import (
	"errors"
	"testing"
	"time"
)

func TestIntervalEstimate(t *testing.T) {
	tests := []struct {
		name    string
		offsets []int
		want    time.Duration
	}{
		{"regular", []int{0, 10, 20, 30}, 10 * time.Second},
		{"odd gaps with outlier", []int{0, 10, 20, 500}, 10 * time.Second},
		{"even gaps averaged", []int{0, 10, 30, 60, 100}, 25 * time.Second},
		{"two samples", []int{0, 7}, 7 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build(tt.offsets, make([]float64, len(tt.offsets)))
			got, err := IntervalEstimate(s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIntervalEstimate_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		s := build(make([]int, n), make([]float64, n))
		if _, err := IntervalEstimate(s); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("n=%d: expected ErrInsufficientData, got %v", n, err)
		}
	}
}

func TestIntervalEstimate_RejectsUnordered(t *testing.T) {
	s := build([]int{10, 0}, []float64{1, 2})
	if _, err := IntervalEstimate(s); !errors.Is(err, ErrUnordered) {
		t.Fatalf("expected ErrUnordered, got %v", err)
	}
}

func TestSegment_SplitsAtLargeGap(t *testing.T) {
	// interval 10s, one gap of 50s
	s := build([]int{0, 10, 20, 70, 80, 90}, []float64{1, 2, 3, 4, 5, 6})

	seg, err := Segment(s)
	if err != nil {
		t.Fatalf("Segment error: %v", err)
	}

	if seg.Interval != 10*time.Second {
		t.Errorf("interval = %s, want 10s", seg.Interval)
	}
	if seg.Threshold != 20*time.Second {
		t.Errorf("threshold = %s, want 20s", seg.Threshold)
	}
	if seg.Count != 2 {
		t.Fatalf("expected 2 segments, got %d", seg.Count)
	}

	wantLabels := []int{0, 0, 0, 1, 1, 1}
	for i, l := range seg.Labels {
		if l != wantLabels[i] {
			t.Errorf("label[%d] = %d, want %d", i, l, wantLabels[i])
		}
	}

	parts := seg.Split(s)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].Len() != 3 || parts[1].Len() != 3 {
		t.Errorf("unexpected part sizes %d and %d", parts[0].Len(), parts[1].Len())
	}
	if !parts[1].First().Equal(t0.Add(70 * time.Second)) {
		t.Errorf("second segment starts at %v", parts[1].First())
	}
}

func TestSegment_GapAtThresholdStaysInSegment(t *testing.T) {
	// interval 10s, gap of exactly 20s does not split
	s := build([]int{0, 10, 20, 40, 50}, []float64{1, 2, 3, 4, 5})

	seg, err := Segment(s)
	if err != nil {
		t.Fatal(err)
	}
	if seg.Count != 1 {
		t.Fatalf("expected 1 segment, got %d", seg.Count)
	}
}

func TestSegment_EverySampleLabelled(t *testing.T) {
	s := build([]int{0, 10, 100, 110, 500, 510, 520}, make([]float64, 7))

	seg, err := Segment(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(seg.Labels) != s.Len() {
		t.Fatalf("labels = %d, samples = %d", len(seg.Labels), s.Len())
	}

	total := 0
	for _, part := range seg.Split(s) {
		total += part.Len()
	}
	if total != s.Len() {
		t.Errorf("split lost samples: %d of %d", total, s.Len())
	}
	if seg.Count != 3 {
		t.Errorf("expected 3 segments, got %d", seg.Count)
	}
}
