package commands

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/pkg/core"
)

func TestBuffer_SubmitAndDrain(t *testing.T) {
	b := NewBuffer(10)

	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 1, Number: 0.5}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteRCS, VesselID: 1, Bool: true}))
	assert.Equal(t, 2, b.Len())

	got := b.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, core.WriteThrottle, got[0].Kind)
	assert.Equal(t, core.WriteRCS, got[1].Kind)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Drain())
}

func TestBuffer_Coalesces(t *testing.T) {
	b := NewBuffer(10)

	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 1, Number: 0.2}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteEngineActive, VesselID: 1, PartID: 4, Bool: true}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 1, Number: 0.9}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteEngineActive, VesselID: 1, PartID: 5, Bool: true}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 2, Number: 0.1}))

	got := b.Drain()
	require.Len(t, got, 4)
	assert.Equal(t, 0.9, got[0].Number)
	assert.Equal(t, uint64(4), got[1].PartID)
	assert.Equal(t, uint64(5), got[2].PartID)
	assert.Equal(t, uint64(2), got[3].VesselID)

	submitted, superseded := b.Stats()
	assert.Equal(t, uint64(5), submitted)
	assert.Equal(t, uint64(1), superseded)
}

func TestBuffer_ConverterIndexIsPartOfKey(t *testing.T) {
	b := NewBuffer(10)

	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteConverterActive, VesselID: 1, PartID: 3, Index: 0, Bool: true}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteConverterActive, VesselID: 1, PartID: 3, Index: 1, Bool: true}))
	assert.Equal(t, 2, b.Len())
}

func TestBuffer_Full(t *testing.T) {
	b := NewBuffer(2)

	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteRCS, VesselID: 1}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteRCS, VesselID: 2}))
	err := b.Submit(core.WriteRequest{Kind: core.WriteRCS, VesselID: 3})
	assert.ErrorIs(t, err, ErrBufferFull)

	// Replacing a pending write still succeeds when full.
	assert.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteRCS, VesselID: 2, Bool: true}))
}

func TestBuffer_RejectsEmptyKind(t *testing.T) {
	b := NewBuffer(0)
	assert.Error(t, b.Submit(core.WriteRequest{VesselID: 1}))
	assert.Equal(t, DefaultLimit, b.limit)
}

func TestBuffer_Discard(t *testing.T) {
	b := NewBuffer(10)
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteRCS, VesselID: 1}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteRCS, VesselID: 2}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 1}))
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 2}))

	assert.Equal(t, 2, b.Discard(1))
	assert.Equal(t, 0, b.Discard(1))

	// Index must still point at the surviving entries.
	require.NoError(t, b.Submit(core.WriteRequest{Kind: core.WriteThrottle, VesselID: 2, Number: 1}))
	got := b.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, core.WriteRCS, got[0].Kind)
	assert.Equal(t, 1.0, got[1].Number)
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer(1000)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = b.Submit(core.WriteRequest{Kind: core.WriteVesselName, VesselID: uint64(id % 10), Text: fmt.Sprint(id)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, b.Len())
	submitted, superseded := b.Stats()
	assert.Equal(t, uint64(100), submitted)
	assert.Equal(t, uint64(90), superseded)
}
