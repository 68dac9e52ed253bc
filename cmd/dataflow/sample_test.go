package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dataflow/pkg/bulk"
)

func TestChunks(t *testing.T) {
	t.Parallel()

	got := chunks([]int{1, 2, 3, 4, 5, 6, 7}, 3)
	require.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, got)
	require.Empty(t, chunks([]int(nil), 3))
	require.Equal(t, [][]int{{1, 2}}, chunks([]int{1, 2}, 0))
}

func TestNewSamples(t *testing.T) {
	t.Parallel()

	a := newSamples(6, 7)
	b := newSamples(6, 7)
	require.Len(t, a, 6)
	for i := range a {
		require.Equal(t, a[i].Score, b[i].Score, "seeded fields are repeatable")
		require.NotEqual(t, a[i].ID, b[i].ID)
	}
	require.Nil(t, a[0].Note)
	require.NotNil(t, a[1].Note)
	require.Contains(t, a[2].Attrs, "region")
}

func TestSampleTableSQL(t *testing.T) {
	t.Parallel()

	sql, err := bulk.CreateTableSQL[sample](false)
	require.NoError(t, err)
	require.Equal(t, `CREATE TABLE IF NOT EXISTS "public"."dataflow_sample" (
  "id" uuid NOT NULL,
  "name" text NOT NULL,
  "score" double precision NOT NULL,
  "qty" integer NOT NULL,
  "created_at" timestamp NOT NULL,
  "note" text,
  "attrs" jsonb,
  PRIMARY KEY ("id")
);`, sql)
}

func TestProduce_StopsWhenCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan int)
	done := make(chan struct{})
	go func() {
		defer close(done)
		produce(ctx, in, []int{1, 2, 3})
	}()

	require.Equal(t, 1, <-in)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("produce did not return after cancel")
	}
	_, open := <-in
	require.False(t, open)
}
