package rack

import (
	"strings"
	"testing"

	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpecPopulatesRack(t *testing.T) {
	r, warnings := ParseSpec("T1:.5 T2:0.8 T4:R1.5", model.DefaultSettings())

	assert.Empty(t, warnings)
	assert.Equal(t, 4, r.Size())
	assert.Equal(t, 1, r.Find(model.DrillBit(500)))
	assert.Equal(t, 2, r.Find(model.DrillBit(800)))
	assert.Equal(t, 4, r.Find(model.RouterBit(1500)))
	_, ok := r.Get(3)
	assert.False(t, ok)
}

func TestParseSpecBadSyntax(t *testing.T) {
	r, warnings := ParseSpec("D1=0.8", model.DefaultSettings())

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Summary, "defaulting to manual")
	assert.True(t, r.IsManual())
	assert.Equal(t, 0, r.Loaded())
}

func TestParseSpecEmptyIsSilent(t *testing.T) {
	r, warnings := ParseSpec("  ", model.DefaultSettings())
	assert.Empty(t, warnings)
	assert.True(t, r.IsManual())
}

func TestParseSpecRepeatedToolNumber(t *testing.T) {
	r, warnings := ParseSpec("T1:0.8 T1:1.0", model.DefaultSettings())

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Summary, "more than once")
	assert.Equal(t, 1, r.Find(model.DrillBit(800)))
	assert.Equal(t, 0, r.Find(model.DrillBit(1000)))
}

func TestParseSpecRejectedEntryFreesToolNumber(t *testing.T) {
	r, warnings := ParseSpec("T3:9.0 T3:0.8", model.DefaultSettings())

	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0].Summary, "Invalid tool diameter"))
	assert.Equal(t, 3, r.Find(model.DrillBit(800)))
}

func TestParseSpecDiameterChecks(t *testing.T) {
	r, warnings := ParseSpec("T1:9.0 T2:0.9", model.DefaultSettings())

	require.Len(t, warnings, 2)
	assert.True(t, strings.HasPrefix(warnings[0].Summary, "Invalid tool diameter"))
	assert.Contains(t, warnings[1].Summary, "non standard")
	assert.Equal(t, 0, r.Find(model.DrillBit(9000)))
	assert.Equal(t, 2, r.Find(model.DrillBit(900)), "non standard bits are still loaded")
}
