package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolAllocate(t *testing.T) {
	p := New(64)
	require.Equal(t, 64, p.Free())

	a, ok := p.Allocate(16)
	require.True(t, ok)
	require.Len(t, a, 16)
	require.Equal(t, 48, p.Free())

	b, ok := p.Allocate(48)
	require.True(t, ok)
	require.Len(t, b, 48)
	require.Equal(t, 0, p.Free())

	_, ok = p.Allocate(1)
	require.False(t, ok)
}

func TestPoolReallocateGrow(t *testing.T) {
	p := New(32)

	a, ok := p.Allocate(8)
	require.True(t, ok)
	require.Equal(t, 24, p.Free())

	grown, ok := p.Reallocate(a, 20)
	require.True(t, ok)
	require.Len(t, grown, 20)
	require.Equal(t, 12, p.Free())
}

func TestPoolReallocateShrink(t *testing.T) {
	p := New(32)

	a, _ := p.Allocate(20)
	shrunk, ok := p.Reallocate(a, 4)
	require.True(t, ok)
	require.Len(t, shrunk, 4)
	require.Equal(t, 28, p.Free())
}

func TestPoolReallocateRefusesNonTail(t *testing.T) {
	p := New(32)

	first, _ := p.Allocate(8)
	p.Allocate(8)

	_, ok := p.Reallocate(first, 16)
	require.False(t, ok)
}

func TestPoolReallocateRefusesOverflow(t *testing.T) {
	p := New(16)

	a, _ := p.Allocate(8)
	_, ok := p.Reallocate(a, 32)
	require.False(t, ok)
}

func TestPoolReset(t *testing.T) {
	p := New(16)

	p.Allocate(16)
	require.Equal(t, 0, p.Free())

	p.Reset()
	require.Equal(t, 16, p.Free())

	_, ok := p.Allocate(16)
	require.True(t, ok)
}

func TestBufferGrowToFit(t *testing.T) {
	p := New(128)

	buf, ok := NewBuffer(p, 8)
	require.True(t, ok)
	require.Equal(t, 8, buf.Cap())

	copy(buf.Tail(), "12345678")
	buf.Advance(8)
	require.Equal(t, "12345678", string(buf.Bytes()))

	require.True(t, buf.GrowToFit(32, 16))
	require.GreaterOrEqual(t, buf.Cap(), 40)
	require.Equal(t, "12345678", string(buf.Bytes()))
}

func TestBufferGrowToFitFailsPastPool(t *testing.T) {
	p := New(16)

	buf, ok := NewBuffer(p, 8)
	require.True(t, ok)

	require.False(t, buf.GrowToFit(64, 4))
}

func TestBufferGrowFailsAfterSiblingAllocation(t *testing.T) {
	p := New(32)

	buf, _ := NewBuffer(p, 8)
	p.Allocate(8)

	require.False(t, buf.Grow(8))
}

func TestBufferReset(t *testing.T) {
	p := New(32)

	buf, _ := NewBuffer(p, 8)
	copy(buf.Tail(), "abc")
	buf.Advance(3)
	require.Equal(t, 3, buf.Len())

	buf.Reset()
	require.Equal(t, 0, buf.Len())
	require.Equal(t, 8, buf.Cap())
}
