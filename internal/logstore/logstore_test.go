package logstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadBack(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := t.Context()

	require.NoError(t, s.Append(ctx, "b1", LevelProgress, "Compiling pages"))
	require.NoError(t, s.Append(ctx, "b1", LevelWarning, "slow template"))
	require.NoError(t, s.Append(ctx, "b2", LevelError, "npm ERR! missing dependency"))

	lines, err := s.Lines(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, LevelProgress, lines[0].Level)
	assert.Equal(t, "Compiling pages", lines[0].Text)
	assert.Equal(t, LevelWarning, lines[1].Level)

	texts, err := s.Texts(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, []string{"npm ERR! missing dependency"}, texts)
}

func TestLinesEmptyForUnknownBuild(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	lines, err := s.Lines(t.Context(), "nope")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPruneKeepsSelectedBuilds(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := t.Context()

	for _, id := range []string{"old1", "old2", "keep"} {
		require.NoError(t, s.Append(ctx, id, LevelProgress, "line for "+id))
	}

	require.NoError(t, s.Prune(ctx, []string{"keep"}))

	kept, err := s.Texts(ctx, "keep")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	gone, err := s.Texts(ctx, "old1")
	require.NoError(t, err)
	assert.Empty(t, gone)
}
