package engine

import (
	"testing"

	"github.com/piwi3910/pcbdrill/internal/model"
	"github.com/piwi3910/pcbdrill/internal/rack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drillGroup(um int, pts ...model.Point) Group {
	return Group{Bit: model.DrillBit(um), Points: pts}
}

func TestAllocateLoadsCatalogBit(t *testing.T) {
	a := NewAllocator(model.DefaultSettings())

	res := a.Allocate([]Group{drillGroup(790, model.Point{X: 1, Y: 1})}, rack.NewManual())

	require.Len(t, res.Assignment.Tools, 1)
	tp := res.Assignment.Tools[0]
	assert.Equal(t, model.DrillBit(800), tp.Bit)
	assert.Equal(t, 1, tp.Slot)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 1, res.Rack.Find(model.DrillBit(800)))
}

func TestAllocateReusesRackBit(t *testing.T) {
	current := rack.New(4)
	require.NoError(t, current.Set(3, model.DrillBit(1000)))
	a := NewAllocator(model.DefaultSettings())

	res := a.Allocate([]Group{drillGroup(980, model.Point{})}, current)

	require.Len(t, res.Assignment.Tools, 1)
	assert.Equal(t, model.DrillBit(1000), res.Assignment.Tools[0].Bit)
	assert.Equal(t, 3, res.Assignment.Tools[0].Slot)
	assert.Equal(t, 1, res.Rack.Loaded())
}

func TestAllocateDoesNotModifyCurrentRack(t *testing.T) {
	current := rack.New(4)
	a := NewAllocator(model.DefaultSettings())

	res := a.Allocate([]Group{drillGroup(600), drillGroup(800)}, current)

	assert.Equal(t, 0, current.Loaded())
	assert.Equal(t, 2, res.Rack.Loaded())
}

func TestAllocateTooDeepFallsBackToRouting(t *testing.T) {
	a := NewAllocator(model.DefaultSettings())
	pts := []model.Point{{X: 0, Y: 0}, {X: 5000, Y: 0}}

	res := a.Allocate([]Group{drillGroup(2000, pts...)}, rack.NewManual())

	assert.Equal(t, []model.Bit{model.DrillBit(1500), model.RouterBit(2000)}, res.Assignment.Bits())
	assert.Equal(t, pts, res.Assignment.Tools[0].Points, "pre-drill")
	assert.Equal(t, pts, res.Assignment.Tools[1].Points, "route pass")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Summary, "Exit depth required")
	assert.Contains(t, res.Warnings[0].Hints[0], "1.500mm")
	assert.Equal(t, 0, res.Rack.Find(model.DrillBit(2000)), "unusable drill is not loaded")
}

func TestAllocateNoBitFallsBackToRouting(t *testing.T) {
	a := NewAllocator(model.DefaultSettings())

	res := a.Allocate([]Group{drillGroup(3200, model.Point{X: 10, Y: 10})}, rack.NewManual())

	assert.Equal(t, []model.Bit{model.DrillBit(1500), model.RouterBit(3200)}, res.Assignment.Bits())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Summary, "No drill bit within tolerance")
}

func TestAllocatePreDrillLargerThanHoleWarns(t *testing.T) {
	a := NewAllocator(model.DefaultSettings())

	res := a.Allocate([]Group{drillGroup(300, model.Point{})}, rack.NewManual())

	assert.Equal(t, []model.Bit{model.DrillBit(1500), model.RouterBit(300)}, res.Assignment.Bits())
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0].Summary, "No drill bit")
	assert.Contains(t, res.Warnings[1].Summary, "larger than")
}

func TestAllocatePreDrillUsesLargestWhenNoneExitCleanly(t *testing.T) {
	settings := model.DefaultSettings()
	settings.DrillSizes = []int{2000, 2500}
	a := NewAllocator(settings)

	res := a.Allocate([]Group{drillGroup(3200, model.Point{})}, rack.NewManual())

	assert.Equal(t, []model.Bit{model.DrillBit(2500), model.RouterBit(3200)}, res.Assignment.Bits())
}

func TestAllocateNoPreDrillWithEmptyCatalog(t *testing.T) {
	settings := model.DefaultSettings()
	settings.DrillSizes = nil
	a := NewAllocator(settings)

	res := a.Allocate([]Group{drillGroup(800, model.Point{})}, rack.NewManual())

	assert.Equal(t, []model.Bit{model.RouterBit(800)}, res.Assignment.Bits())
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[1].Summary, "No pre-drill bit")
}

func TestAllocateFullRack(t *testing.T) {
	current := rack.New(1)
	require.NoError(t, current.Set(1, model.DrillBit(1000)))
	a := NewAllocator(model.DefaultSettings())

	res := a.Allocate([]Group{drillGroup(500, model.Point{})}, current)

	assert.Equal(t, []model.Bit{model.DrillBit(1500), model.RouterBit(500)}, res.Assignment.Bits())
	for _, tp := range res.Assignment.Tools {
		assert.Equal(t, 0, tp.Slot, "%s is not racked", tp.Bit)
	}
	require.Len(t, res.Warnings, 4)
	assert.Contains(t, res.Warnings[0].Summary, "No drill bit")
	assert.Contains(t, res.Warnings[1].Summary, "larger than")
	assert.Contains(t, res.Warnings[2].Summary, "Rack is full")
	assert.Contains(t, res.Warnings[3].Summary, "Rack is full")
}

func TestAllocateRouterGroups(t *testing.T) {
	a := NewAllocator(model.DefaultSettings())
	var v model.RouteVector
	v.AddSegment(model.Point{}, model.Point{X: 4000})

	res := a.Allocate([]Group{
		{Bit: model.RouterBit(980), Routes: []model.RouteVector{v}},
		{Bit: model.RouterBit(600), Routes: []model.RouteVector{v}},
	}, rack.NewManual())

	assert.Equal(t, []model.Bit{model.RouterBit(600), model.RouterBit(1000)}, res.Assignment.Bits())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Summary, "No router bit")
}

func TestAllocateMergesGroupsOnSameBit(t *testing.T) {
	a := NewAllocator(model.DefaultSettings())

	res := a.Allocate([]Group{
		drillGroup(800, model.Point{X: 1}),
		drillGroup(790, model.Point{X: 2}),
	}, rack.NewManual())

	require.Len(t, res.Assignment.Tools, 1)
	assert.Equal(t, []model.Point{{X: 1}, {X: 2}}, res.Assignment.Tools[0].Points)
}

func TestAllocateOrdersDrillsThenRouters(t *testing.T) {
	a := NewAllocator(model.DefaultSettings())

	res := a.Allocate([]Group{
		{Bit: model.RouterBit(1000), Routes: []model.RouteVector{{}}},
		drillGroup(1200),
		drillGroup(600),
	}, rack.NewManual())

	assert.Equal(t, []model.Bit{model.DrillBit(600), model.DrillBit(1200), model.RouterBit(1000)}, res.Assignment.Bits())
	// slots follow load order, not machining order
	assert.Equal(t, 3, res.Assignment.Tools[0].Slot)
	assert.Equal(t, 1, res.Assignment.Find(model.RouterBit(1000)).Slot)
}
