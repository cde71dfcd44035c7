package evaluate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/swdee/go-posescore"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeExtractor returns canned keypoints keyed by file path
type fakeExtractor struct {
	poses map[string]posescore.KeypointSet
	errs  map[string]error
	delay map[string]time.Duration
	mu    sync.Mutex
	calls []string
}

func (f *fakeExtractor) Extract(ctx context.Context, file string) (posescore.KeypointSet, error) {

	f.mu.Lock()
	f.calls = append(f.calls, file)
	f.mu.Unlock()

	if d, ok := f.delay[file]; ok {
		time.Sleep(d)
	}

	if err, ok := f.errs[file]; ok {
		return nil, err
	}

	kps, ok := f.poses[file]

	if !ok {
		return nil, &posescore.DetectionError{File: file, Err: os.ErrNotExist}
	}

	return kps, nil
}

func pose(offset float64) posescore.KeypointSet {

	base := posescore.KeypointSet{
		posescore.Pt(100, 40), posescore.Pt(95, 35), posescore.Pt(105, 35),
		posescore.Pt(88, 38), posescore.Pt(112, 38), posescore.Pt(80, 70),
		posescore.Pt(120, 70), posescore.Pt(70, 105), posescore.Pt(130, 105),
		posescore.Pt(65, 140), posescore.Pt(135, 140), posescore.Pt(88, 150),
		posescore.Pt(112, 150), posescore.Pt(86, 200), posescore.Pt(114, 200),
		posescore.Pt(85, 250), posescore.Pt(115, 250),
	}

	for i := range base {
		base[i].X += offset
	}

	return base
}

func newEvaluator(t *testing.T, ex posescore.Extractor, opts ...Option) *Evaluator {
	t.Helper()

	opts = append([]Option{WithLogger(quietLogger)}, opts...)
	ev, err := New(ex, posescore.COCOSigmas(), opts...)

	if err != nil {
		t.Fatalf("unexpected error creating evaluator: %v", err)
	}

	return ev
}

func refs(names ...string) []Entry {

	out := make([]Entry, len(names))

	for i, n := range names {
		out[i] = Entry{Name: n, Path: "poses/" + n}
	}

	return out
}

func cands(names ...string) CandidateLookup {

	m := make(map[string]Entry)

	for _, n := range names {
		e := Entry{Name: n, Path: "generated/" + n}
		m[e.Stem()] = e
	}

	return MapLookup(m)
}

func TestRunMissingCandidate(t *testing.T) {

	ex := &fakeExtractor{poses: map[string]posescore.KeypointSet{
		"poses/a.png":     pose(0),
		"generated/a.png": pose(5),
		"poses/b.png":     pose(0),
	}}

	ev := newEvaluator(t, ex)

	sum, err := ev.Run(context.Background(), refs("a.png", "b.png"), cands("a.png"))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sum.Results) != 2 || sum.Scored != 1 || sum.Skipped != 1 {
		t.Fatalf("expected 2 results with 1 scored and 1 skipped, got %+v", sum)
	}

	a, b := sum.Results[0], sum.Results[1]

	if a.Reference != "a.png" || !a.Scored() || a.Candidate != "a.png" {
		t.Errorf("unexpected first result %+v", a)
	}

	if b.Reference != "b.png" || b.Skip != SkipMissingCandidate ||
		!errors.Is(b.Err, ErrMissingCandidate) {
		t.Errorf("expected second result to be a missing candidate, got %+v", b)
	}

	mean, ok := sum.Mean()

	if !ok {
		t.Fatal("expected mean to be defined")
	}

	area, _ := posescore.BBoxArea(pose(0))
	want, _ := posescore.Score(pose(5), pose(0), posescore.COCOSigmas(), area)

	if mean != want || a.OKS != want {
		t.Errorf("expected mean %v from the scored pair only, got %v", want, mean)
	}

	// the reference of a missing pair is never extracted
	for _, c := range ex.calls {
		if c == "poses/b.png" {
			t.Error("extractor should not run for a reference without a candidate")
		}
	}
}

func TestRunNoScoredPairs(t *testing.T) {

	ex := &fakeExtractor{}
	ev := newEvaluator(t, ex)

	sum, err := ev.Run(context.Background(), refs("a.png", "b.png"), cands())

	if err != nil {
		t.Fatal(err)
	}

	if _, ok := sum.Mean(); ok {
		t.Error("expected mean to be undefined with zero scored pairs")
	}

	if _, ok := sum.Stats(); ok {
		t.Error("expected stats to be undefined with zero scored pairs")
	}

	if sum.Scored != 0 || sum.Skipped != 2 {
		t.Errorf("unexpected counts scored=%d skipped=%d", sum.Scored, sum.Skipped)
	}

	empty, err := ev.Run(context.Background(), nil, cands())

	if err != nil {
		t.Fatal(err)
	}

	if _, ok := empty.Mean(); ok || len(empty.Results) != 0 {
		t.Errorf("expected empty summary, got %+v", empty)
	}
}

func TestRunSkipReasons(t *testing.T) {

	plainErr := errors.New("corrupt png")

	ex := &fakeExtractor{
		poses: map[string]posescore.KeypointSet{
			"poses/short.png":       pose(0),
			"generated/short.png":   pose(0)[:16],
			"poses/nothing.png":     posescore.NewAbsentSet(17),
			"generated/nothing.png": pose(0),
			"poses/badcand.png":     pose(0),
			"poses/plain.png":       pose(0),
			"poses/ok.png":          pose(0),
			"generated/ok.png":      pose(0),
		},
		errs: map[string]error{
			"generated/badcand.png": &posescore.DetectionError{File: "generated/badcand.png"},
			"generated/plain.png":   plainErr,
		},
	}

	ev := newEvaluator(t, ex)

	sum, err := ev.Run(context.Background(),
		refs("short.png", "nothing.png", "badcand.png", "plain.png", "ok.png"),
		cands("short.png", "nothing.png", "badcand.png", "plain.png", "ok.png"))

	if err != nil {
		t.Fatal(err)
	}

	want := []SkipReason{SkipShapeMismatch, SkipNoKeypoints, SkipDetectionFailed,
		SkipDetectionFailed, NotSkipped}

	for i, r := range sum.Results {
		if r.Skip != want[i] {
			t.Errorf("%s: expected %v, got %v (%v)", r.Reference, want[i], r.Skip, r.Err)
		}
	}

	if !errors.Is(sum.Results[0].Err, posescore.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch error, got %v", sum.Results[0].Err)
	}

	if !errors.Is(sum.Results[1].Err, posescore.ErrNoKeypoints) {
		t.Errorf("expected no keypoints error, got %v", sum.Results[1].Err)
	}

	var detErr *posescore.DetectionError

	if !errors.As(sum.Results[3].Err, &detErr) || !errors.Is(sum.Results[3].Err, plainErr) {
		t.Errorf("expected plain extractor error wrapped in DetectionError, got %v",
			sum.Results[3].Err)
	}

	if mean, ok := sum.Mean(); !ok || mean != 1.0 {
		t.Errorf("expected mean 1.0 from the identical pair, got %v %v", mean, ok)
	}
}

func TestRunPreservesOrderWithWorkers(t *testing.T) {

	names := []string{"a.png", "b.png", "c.png", "d.png", "e.png", "f.png"}
	ex := &fakeExtractor{
		poses: map[string]posescore.KeypointSet{},
		delay: map[string]time.Duration{},
	}

	for i, n := range names {
		ex.poses["poses/"+n] = pose(0)
		ex.poses["generated/"+n] = pose(float64(i))
		// earlier entries take longer so they finish last
		ex.delay["poses/"+n] = time.Duration(len(names)-i) * 5 * time.Millisecond
	}

	ev := newEvaluator(t, ex, WithWorkers(4))

	sum, err := ev.Run(context.Background(), refs(names...), cands(names...))

	if err != nil {
		t.Fatal(err)
	}

	prev := math.Inf(1)

	for i, r := range sum.Results {
		if r.Reference != names[i] || r.Index != i {
			t.Errorf("result %d is %s (index %d), expected %s", i, r.Reference, r.Index, names[i])
		}

		// candidates drift further from the reference with each entry
		if !(r.OKS < prev) && i > 0 {
			t.Errorf("result %d OKS %v not below previous %v", i, r.OKS, prev)
		}

		prev = r.OKS
	}
}

func TestNewConfigErrors(t *testing.T) {

	if _, err := New(nil, posescore.COCOSigmas()); !errors.Is(err, ErrNoExtractor) {
		t.Errorf("expected ErrNoExtractor, got %v", err)
	}

	if _, err := New(&fakeExtractor{}, posescore.SigmaTable{}); !errors.Is(err, posescore.ErrInvalidSigmas) {
		t.Errorf("expected ErrInvalidSigmas for zero value table, got %v", err)
	}
}

func TestNewSigmaKeypointCount(t *testing.T) {

	short, err := posescore.NewSigmaTable("short", posescore.COCOSigmas().Values()[:16])

	if err != nil {
		t.Fatal(err)
	}

	ex := &fakeExtractor{}

	tests := []struct {
		name    string
		sigmas  posescore.SigmaTable
		opts    []Option
		wantErr bool
	}{
		{"matching count", posescore.COCOSigmas(), []Option{WithKeypoints(17)}, false},
		{"short table", short, []Option{WithKeypoints(17)}, true},
		{"count not configured", short, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			ev, err := New(ex, tc.sigmas, tc.opts...)

			if tc.wantErr {
				if !errors.Is(err, posescore.ErrInvalidSigmas) {
					t.Fatalf("expected ErrInvalidSigmas, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if ev.Sigmas().Name() != tc.sigmas.Name() || ev.Sigmas().Len() != tc.sigmas.Len() {
				t.Errorf("expected sigma table %s, got %s", tc.sigmas.Name(), ev.Sigmas().Name())
			}
		})
	}

	// no pair is extracted when the configuration is rejected
	if len(ex.calls) != 0 {
		t.Errorf("expected no extractor calls, got %v", ex.calls)
	}
}

func TestRunCancelled(t *testing.T) {

	ex := &fakeExtractor{poses: map[string]posescore.KeypointSet{
		"poses/a.png": pose(0), "generated/a.png": pose(0),
	}}

	ev := newEvaluator(t, ex)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ev.Run(ctx, refs("a.png"), cands("a.png")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunObserver(t *testing.T) {

	ex := &fakeExtractor{poses: map[string]posescore.KeypointSet{
		"poses/a.png": pose(0), "generated/a.png": pose(2),
		"poses/b.png": posescore.NewAbsentSet(17), "generated/b.png": pose(0),
	}}

	var seen []PairResult

	ev := newEvaluator(t, ex, WithObserver(func(res PairResult, ref, cand posescore.KeypointSet) {
		if len(ref) != 17 || len(cand) != 17 {
			t.Errorf("observer given wrong keypoint sets for %s", res.Reference)
		}
		seen = append(seen, res)
	}))

	if _, err := ev.Run(context.Background(), refs("a.png", "b.png", "c.png"),
		cands("a.png", "b.png")); err != nil {
		t.Fatal(err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected observer to see 2 extracted pairs, got %d", len(seen))
	}

	if !seen[0].Scored() || seen[1].Skip != SkipNoKeypoints {
		t.Errorf("observer saw unexpected results %+v", seen)
	}
}

func TestRunDirs(t *testing.T) {

	refDir := t.TempDir()
	candDir := t.TempDir()

	for _, n := range []string{"01.png", "02.jpg", "03.png", "notes.txt", ".hidden.png"} {
		os.WriteFile(filepath.Join(refDir, n), nil, 0o644)
	}

	for _, n := range []string{"01.jpg", "01.png", "02.png", "04.png"} {
		os.WriteFile(filepath.Join(candDir, n), nil, 0o644)
	}

	ex := posescore.ExtractorFunc(func(ctx context.Context, file string) (posescore.KeypointSet, error) {
		return pose(0), nil
	})

	ev := newEvaluator(t, ex)

	sum, err := ev.RunDirs(context.Background(), refDir, candDir)

	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		ref, cand string
		skip      SkipReason
	}{
		{"01.png", "01.png", NotSkipped},
		{"02.jpg", "02.png", NotSkipped},
		{"03.png", "", SkipMissingCandidate},
	}

	if len(sum.Results) != len(want) {
		t.Fatalf("expected %d results, got %+v", len(want), sum.Results)
	}

	for i, w := range want {
		r := sum.Results[i]
		if r.Reference != w.ref || r.Candidate != w.cand || r.Skip != w.skip {
			t.Errorf("result %d: expected %+v, got %+v", i, w, r)
		}
	}

	if _, err := ev.RunDirs(context.Background(), filepath.Join(refDir, "nope"), candDir); err == nil {
		t.Error("expected error for missing reference directory")
	}
}

func TestSummaryStats(t *testing.T) {

	sum := NewSummary([]PairResult{
		{Reference: "a", OKS: 0.2},
		{Reference: "b", Skip: SkipMissingCandidate},
		{Reference: "c", OKS: 0.6},
		{Reference: "d", OKS: 0.4},
	})

	st, ok := sum.Stats()

	if !ok {
		t.Fatal("expected stats")
	}

	if math.Abs(st.Mean-0.4) > 1e-12 || st.Min != 0.2 || st.Max != 0.6 || st.Median != 0.4 {
		t.Errorf("unexpected stats %+v", st)
	}

	if want := math.Sqrt(0.08 / 3); math.Abs(st.StdDev-want) > 1e-12 {
		t.Errorf("expected population stddev %v, got %v", want, st.StdDev)
	}

	if len(sum.SkippedResults()) != 1 || sum.SkippedResults()[0].Reference != "b" {
		t.Errorf("unexpected skipped results %+v", sum.SkippedResults())
	}
}
