package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := backend()
	t.Cleanup(func() { SetBackend(orig) })
	fb := &fakeBackend{}
	SetBackend(fb)
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := install(t)

	RecordStep("jobA", "public.events", StepCopy, nil, 2*time.Second)
	RecordStep("jobB", "public.events", StepUpdate, errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != StepTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, StepTotal)
	}
	want := Labels{"job": "jobA", "table": "public.events", "step": "copy", "status": "success"}
	for k, v := range want {
		if cc0.labels[k] != v {
			t.Fatalf("counter[0].labels[%s]=%q; want %q", k, cc0.labels[k], v)
		}
	}

	h0 := fb.callsHistograms[0]
	if h0.name != StepDurationSeconds {
		t.Fatalf("hist[0].name=%q; want %s", h0.name, StepDurationSeconds)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	cc1 := fb.callsCounters[1]
	if cc1.labels["step"] != "update" || cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1] labels = %v; want step=update status=failure", cc1.labels)
	}
	if h1 := fb.callsHistograms[1]; h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordRowAndBatches(t *testing.T) {
	fb := install(t)

	RecordRow("jobX", "t", KindEncoded, 3)
	RecordRow("jobX", "t", KindEncoded, 0) // ignored
	RecordRow("jobY", "t", KindInserted, 5)
	RecordBatches("jobZ", "t", 2)
	RecordBatches("jobZ", "t", -1) // ignored

	if len(fb.callsCounters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.callsCounters))
	}

	c0 := fb.callsCounters[0]
	if c0.name != RecordsTotal || c0.delta != 3 || c0.labels["kind"] != "encoded" {
		t.Fatalf("counter[0] = %#v; want %s kind=encoded delta=3", c0, RecordsTotal)
	}
	c1 := fb.callsCounters[1]
	if c1.labels["job"] != "jobY" || c1.labels["kind"] != "inserted" || c1.delta != 5 {
		t.Fatalf("counter[1] = %#v; want job=jobY kind=inserted delta=5", c1)
	}
	c2 := fb.callsCounters[2]
	if c2.name != BatchesTotal || c2.delta != 2 || c2.labels["table"] != "t" {
		t.Fatalf("counter[2] = %#v; want %s delta=2 table=t", c2, BatchesTotal)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if backend() != Backend(fb) {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	SetBackend(nil)
	if backend() != Backend(fb) {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
