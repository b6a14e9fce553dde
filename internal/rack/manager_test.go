package rack

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeRackFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewManagerCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "rack.yaml")

	m := NewManager(model.DefaultSettings(), path, quietLogger())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Created ")
	assert.NotContains(t, string(data), "{{")
	assert.Contains(t, m.Registry().Names(), "standard")
	assert.Equal(t, 10, m.Rack().Size())
	assert.Equal(t, 0, m.Rack().Loaded())
	assert.Empty(t, m.Warnings())
}

func TestNewManagerSelectsUsedRack(t *testing.T) {
	path := writeRackFile(t, `
issue: 1
size: 6
use: job
racks:
  job:
    - number: 2
      drill: 0.8
    - drill: 1.0
    - number: 5
      router: 1.5
`)
	m := NewManager(model.DefaultSettings(), path, quietLogger())

	assert.Equal(t, "job", m.Selected())
	r := m.Rack()
	assert.Equal(t, 6, r.Size())
	assert.Equal(t, 2, r.Find(model.DrillBit(800)))
	assert.Equal(t, 3, r.Find(model.DrillBit(1000)))
	assert.Equal(t, 5, r.Find(model.RouterBit(1500)))
	assert.Empty(t, m.Warnings())
}

func TestNewManagerInvalidFileFallsBackToManual(t *testing.T) {
	content := "issue: 1\nsize: 4\nracks:\n  bad:\n    - drill: 0.8\n      router: 1.0\n"
	path := writeRackFile(t, content)

	m := NewManager(model.DefaultSettings(), path, quietLogger())

	assert.True(t, m.Rack().IsManual())
	require.Len(t, m.Warnings(), 1)
	assert.Contains(t, m.Warnings()[0].Summary, "manual rack")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "invalid file must not be overwritten")

	assert.ErrorIs(t, m.Save("bad", New(2)), ErrInvalidFile)
}

func TestReadRegistryErrorKinds(t *testing.T) {
	_, err := ReadRegistry(filepath.Join(t.TempDir(), "none.yaml"))
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, LoadMissing, lerr.Kind)

	_, err = ReadRegistry(writeRackFile(t, "issue: [1\n"))
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, LoadParse, lerr.Kind)

	_, err = ReadRegistry(writeRackFile(t, "issue: 1\nsize: -1\nracks: {}\ncolour: red\n"))
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, LoadSchema, lerr.Kind)
	assert.GreaterOrEqual(t, len(lerr.Problems), 2)
}

func TestSelectRejectsZeroSize(t *testing.T) {
	path := writeRackFile(t, "issue: 1\nsize: 0\nuse: a\nracks:\n  a:\n    - drill: 0.8\n")

	m := NewManager(model.DefaultSettings(), path, quietLogger())

	assert.True(t, m.Rack().IsManual())
	assert.Equal(t, "", m.Selected())
	assert.Len(t, m.Warnings(), 1)
}

func TestSelectUnknownRack(t *testing.T) {
	path := writeRackFile(t, "issue: 1\nsize: 4\nracks:\n  a:\n    - drill: 0.8\n")
	m := NewManager(model.DefaultSettings(), path, quietLogger())

	err := m.Select("b")
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, m.Rack().IsManual())
}

func TestSelectDiameterOutOfRange(t *testing.T) {
	path := writeRackFile(t, "issue: 1\nsize: 4\nuse: a\nracks:\n  a:\n    - drill: 0.8\n    - drill: 12.0\n")

	m := NewManager(model.DefaultSettings(), path, quietLogger())

	assert.True(t, m.Rack().IsManual())
	assert.Equal(t, 0, m.Rack().Loaded())
	require.NotEmpty(t, m.Warnings())
	assert.Contains(t, m.Warnings()[len(m.Warnings())-1].Hints[0], "not supported")
}

func TestSelectNonStandardAndDuplicateWarn(t *testing.T) {
	path := writeRackFile(t, "issue: 1\nsize: 4\nuse: a\nracks:\n  a:\n    - drill: 0.9\n    - drill: 0.8\n    - drill: 0.8\n")

	m := NewManager(model.DefaultSettings(), path, quietLogger())

	assert.Equal(t, "a", m.Selected())
	assert.Equal(t, 2, m.Rack().Loaded())
	require.Len(t, m.Warnings(), 2)
	assert.Contains(t, m.Warnings()[0].Summary, "non standard")
	assert.Contains(t, m.Warnings()[1].Summary, "listed twice")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rack.yaml")
	s := model.DefaultSettings()
	m := NewManager(s, path, quietLogger())

	r := New(5)
	require.NoError(t, r.Set(1, model.DrillBit(600)))
	require.NoError(t, r.Set(3, model.DrillBit(1200)))
	require.NoError(t, r.Set(5, model.RouterBit(1000)))
	require.NoError(t, m.Save("job42", r))

	reloaded := NewManager(s, path, quietLogger())
	require.NoError(t, reloaded.Select("job42"))
	got := reloaded.Rack()
	for slot := 1; slot <= 5; slot++ {
		want, wantOK := r.Get(slot)
		have, haveOK := got.Get(slot)
		assert.Equal(t, wantOK, haveOK, "slot %d", slot)
		assert.Equal(t, want, have, "slot %d", slot)
	}
	assert.Contains(t, reloaded.Registry().Names(), "standard", "other racks are kept")
}

func TestSaveRaisesZeroSize(t *testing.T) {
	path := writeRackFile(t, "issue: 1\nsize: 0\nracks: {}\n")
	m := NewManager(model.DefaultSettings(), path, quietLogger())

	r := New(0)
	_, _, err := r.AddBit(model.DrillBit(800), 0)
	require.NoError(t, err)
	_, _, err = r.AddBit(model.DrillBit(1000), 0)
	require.NoError(t, err)
	require.NoError(t, m.Save("manual", r))

	reg, err := ReadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Size)
	assert.Len(t, reg.Racks["manual"], 2)
}

func TestAddToolWarnsOnDuplicate(t *testing.T) {
	m := NewManager(model.DefaultSettings(), filepath.Join(t.TempDir(), "rack.yaml"), quietLogger())

	slot, err := m.AddTool(model.DrillBit(800))
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	_, err = m.AddTool(model.DrillBit(800))
	assert.ErrorIs(t, err, ErrDuplicateBit)
	assert.Len(t, m.Warnings(), 1)
}
