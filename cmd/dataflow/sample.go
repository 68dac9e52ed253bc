package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// sample is the record type the CLI loads. Its table is created from the
// struct itself when create_table is set.
type sample struct {
	ID        uuid.UUID      `db:"id,pk"`
	Name      string         `db:"name"`
	Score     float64        `db:"score"`
	Qty       int32          `db:"qty"`
	CreatedAt time.Time      `db:"created_at"`
	Note      *string        `db:"note"`
	Attrs     map[string]any `db:"attrs"`
}

func (sample) TableName() string { return "public.dataflow_sample" }

var sampleRegions = []string{"eu-west", "us-east", "ap-south"}

// newSample returns one random record. Every third record has no note.
func newSample(r *rand.Rand, i int, now time.Time) sample {
	s := sample{
		ID:        uuid.New(),
		Name:      fmt.Sprintf("sample-%d", i),
		Score:     r.Float64() * 100,
		Qty:       r.Int32N(1000),
		CreatedAt: now.Add(-time.Duration(r.IntN(86400)) * time.Second),
		Attrs: map[string]any{
			"region": sampleRegions[r.IntN(len(sampleRegions))],
			"seq":    i,
		},
	}
	if i%3 != 0 {
		note := "generated"
		s.Note = &note
	}
	return s
}

// newSamples builds n records with a fixed seed so runs are repeatable apart
// from the ids.
func newSamples(n int, seed uint64) []sample {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	now := time.Now().UTC().Truncate(time.Microsecond)
	out := make([]sample, n)
	for i := range out {
		out[i] = newSample(r, i, now)
	}
	return out
}

// chunks splits records into batches of at most size.
func chunks[T any](records []T, size int) [][]T {
	if size <= 0 {
		size = len(records)
	}
	var out [][]T
	for len(records) > 0 {
		n := min(size, len(records))
		out = append(out, records[:n])
		records = records[n:]
	}
	return out
}
