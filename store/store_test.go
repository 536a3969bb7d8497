package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helixlab/helix/vm"
	"github.com/helixlab/helix/vm/timeline"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGenomeCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	id, err := s.PutGenome(ctx, "spiral", "ATG GAA AAT GGA TAA", "one circle")
	require.NoError(t, err)
	require.NotZero(t, id)

	g, err := s.GetGenome(ctx, "spiral")
	require.NoError(t, err)
	require.Equal(t, id, g.ID)
	require.Equal(t, "ATG GAA AAT GGA TAA", g.Source)
	require.Equal(t, "one circle", g.Description)

	// Upsert by name keeps the ID and replaces the source.
	id2, err := s.PutGenome(ctx, "spiral", "ATG TAA", "empty now")
	require.NoError(t, err)
	require.Equal(t, id, id2)
	g, err = s.GetGenome(ctx, "spiral")
	require.NoError(t, err)
	require.Equal(t, "ATG TAA", g.Source)

	_, err = s.PutGenome(ctx, "fern", "ATG GGA TAA", "")
	require.NoError(t, err)
	gs, err := s.ListGenomes(ctx)
	require.NoError(t, err)
	require.Len(t, gs, 2)
	require.Equal(t, "fern", gs[0].Name)
	require.Equal(t, "spiral", gs[1].Name)

	require.NoError(t, s.DeleteGenome(ctx, "fern"))
	_, err = s.GetGenome(ctx, "fern")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGenomeNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.GetGenome(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.DeleteGenome(ctx, "missing"), ErrNotFound)
}

func TestGenomeNameRequired(t *testing.T) {
	_, err := openTest(t).PutGenome(context.Background(), "", "ATG TAA", "")
	require.Error(t, err)
}

func TestRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	src := "ATG GAA AAT GGA TAA"
	genomeID, err := s.PutGenome(ctx, "spiral", src, "")
	require.NoError(t, err)

	tokens := make([]vm.Token, 0)
	for i, f := range []string{"ATG", "GAA", "AAT", "GGA", "TAA"} {
		tokens = append(tokens, vm.Token{Text: vm.Codon(f), Offset: i * 3, Line: 1})
	}
	snaps, err := vm.NewEngine(nil).Run(tokens)
	require.NoError(t, err)

	digest := timeline.Digest(tokens)
	data, err := timeline.Marshal(timeline.New(snaps), digest)
	require.NoError(t, err)

	runID, err := s.PutRun(ctx, genomeID, digest[:], vm.StatusHalted.String(), len(snaps), data)
	require.NoError(t, err)

	r, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, genomeID, r.GenomeID)
	require.Equal(t, "halted", r.Status)
	require.Equal(t, len(snaps), r.Steps)

	tl, gotDigest, err := timeline.Unmarshal(r.Timeline)
	require.NoError(t, err)
	require.Equal(t, digest, gotDigest)
	require.Equal(t, len(snaps), tl.Len())
}

func TestListRunsOmitsTimelines(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	genomeID, err := s.PutGenome(ctx, "spiral", "ATG TAA", "")
	require.NoError(t, err)
	_, err = s.PutRun(ctx, genomeID, []byte{1}, "halted", 2, []byte("payload-a"))
	require.NoError(t, err)
	_, err = s.PutRun(ctx, genomeID, []byte{2}, "errored", 1, []byte("payload-b"))
	require.NoError(t, err)

	rs, err := s.ListRuns(ctx, genomeID)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	// Newest first.
	require.Equal(t, "errored", rs[0].Status)
	for _, r := range rs {
		require.Empty(t, r.Timeline)
	}
}

func TestDeleteGenomeRemovesRuns(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	genomeID, err := s.PutGenome(ctx, "spiral", "ATG TAA", "")
	require.NoError(t, err)
	runID, err := s.PutRun(ctx, genomeID, []byte{1}, "halted", 2, []byte("payload"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteGenome(ctx, "spiral"))
	_, err = s.GetRun(ctx, runID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetRunNotFound(t *testing.T) {
	_, err := openTest(t).GetRun(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}
