package record

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRecord() *Record {
	return &Record{
		RegistrationsCount: 2,
		ValuesCount:        1,
		Items: []Item{
			{AddedAt: 0, AcceptedAt: 0, OrderLenAtAccept: 0, OrderIx: 0, Parallelism: 1},
			{AddedAt: 1, AcceptedAt: 1, OrderLenAtAccept: 1, OrderIx: 2, Parallelism: 1},
		},
	}
}

func TestMemoryStoreRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	want := sampleRecord()

	require.NoError(t, s.Store(ctx, "run-1", want))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestMemoryStoreMissingIDErrors(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestFileStoreRoundTrips(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	want := sampleRecord()
	require.NoError(t, s.Store(ctx, "run-1", want))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestFileStoreDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Store(ctx, "run-1", sampleRecord()))

	path := s.path("run-1")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = s.Get(ctx, "run-1")
	require.Error(t, err)
}
