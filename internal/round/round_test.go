package round

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBands(t *testing.T) {
	cases := map[int]Round{
		-1: Aptitude,
		0:  Aptitude,
		2:  Aptitude,
		3:  Behavioral,
		5:  Behavioral,
		6:  Technical,
		8:  Technical,
		9:  SystemDesign,
		42: SystemDesign,
	}
	for index, want := range cases {
		assert.Equal(t, want, Select(index), "index %d", index)
	}
}

func TestSelectIsMonotonic(t *testing.T) {
	order := map[Round]int{Aptitude: 0, Behavioral: 1, Technical: 2, SystemDesign: 3}
	prev := order[Select(0)]
	for i := 1; i < 100; i++ {
		cur := order[Select(i)]
		require.GreaterOrEqual(t, cur, prev, "index %d", i)
		prev = cur
	}
}

func TestFirstFourQuestions(t *testing.T) {
	got := make([]Round, 0, 4)
	for i := 0; i < 4; i++ {
		got = append(got, Select(i))
	}
	assert.Equal(t, []Round{Aptitude, Aptitude, Aptitude, Behavioral}, got)
}

func TestTableFallsBackToDefaults(t *testing.T) {
	table := Table{SystemDesign: 600, Technical: 0}
	assert.Equal(t, 600, table.TimeLimit(SystemDesign))
	assert.Equal(t, DefaultTable()[Technical], table.TimeLimit(Technical))
	assert.Equal(t, DefaultTable()[Aptitude], table.TimeLimit(Aptitude))

	r, limit := table.ForIndex(10)
	assert.Equal(t, SystemDesign, r)
	assert.Equal(t, 600, limit)
}

func TestMergeKeepsPositiveOverrides(t *testing.T) {
	merged := DefaultTable().Merge(Table{Aptitude: 45, Behavioral: -3})
	assert.Equal(t, 45, merged[Aptitude])
	assert.Equal(t, DefaultTable()[Behavioral], merged[Behavioral])
	assert.Len(t, merged, len(All))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rounds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rounds:\n  aptitude: 60\n  system-design: 420\n"), 0o600))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 60, table.TimeLimit(Aptitude))
	assert.Equal(t, 420, table.TimeLimit(SystemDesign))
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.toml")
	require.NoError(t, os.WriteFile(path, []byte("[rounds]\nbehavioral = 150\nsystem-design = 360\n"), 0o600))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 150, table.TimeLimit(Behavioral))
	assert.Equal(t, 360, table.TimeLimit(SystemDesign))
	assert.Equal(t, DefaultTable()[Aptitude], table.TimeLimit(Aptitude))
}

func TestLoadFileRejectsUnknownRound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rounds:\n  screening: 60\n"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
