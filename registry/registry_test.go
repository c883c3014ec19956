package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorAccepts(t *testing.T) {
	fixed := NewEvent("ping", nil, []int{0, 1}, false)
	ok, truncate := fixed.Accepts(1)
	assert.True(t, ok)
	assert.False(t, truncate)

	ok, _ = fixed.Accepts(2)
	assert.False(t, ok)

	variadic := NewEvent("log", nil, []int{1}, true)
	ok, truncate = variadic.Accepts(5)
	assert.True(t, ok)
	assert.True(t, truncate, "variadic descriptor with no fixed match truncates to zero args")

	ok, truncate = variadic.Accepts(1)
	assert.True(t, ok)
	assert.False(t, truncate, "a fixed-arity match never truncates, even on a variadic descriptor")
}

func TestResolveArgs(t *testing.T) {
	desc := NewRPC("add", nil, []int{2}, false)

	args, err := ResolveArgs(desc, []any{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, args)

	_, err = ResolveArgs(desc, []any{1})
	require.Error(t, err)
	var arityErr *ArityError
	assert.ErrorAs(t, err, &arityErr)
	assert.Equal(t, "add", arityErr.Name)
	assert.Equal(t, 1, arityErr.Got)
}

func TestDictLookup(t *testing.T) {
	addDesc := NewRPC("add", func(ctx context.Context, args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	}, []int{2}, false)

	dict := NewDict().RPC(addDesc)

	got, ok := dict.Lookup(RPC, "add")
	require.True(t, ok)
	assert.Same(t, addDesc, got)

	_, ok = dict.Lookup(RPC, "subtract")
	assert.False(t, ok)

	_, ok = dict.Lookup(Event, "add")
	assert.False(t, ok, "a name registered under one category is invisible to another")
}

func TestCellAtomicSwap(t *testing.T) {
	first := NewDict().RPC(NewRPC("v", nil, []int{0}, false))
	second := NewDict().RPC(NewRPC("v", nil, []int{1}, false))

	cell := NewCell(first)
	snapshot := cell.Load()

	cell.Store(second)

	// The earlier snapshot must still see the old dictionary: a
	// request that already took Load() before the swap keeps running
	// against what it saw.
	desc, ok := snapshot.Lookup(RPC, "v")
	require.True(t, ok)
	accepts, _ := desc.Accepts(0)
	assert.True(t, accepts)

	desc, ok = cell.Load().Lookup(RPC, "v")
	require.True(t, ok)
	accepts, _ = desc.Accepts(1)
	assert.True(t, accepts)
}

func TestCellNilDictDefaultsToEmpty(t *testing.T) {
	cell := NewCell(nil)
	_, ok := cell.Load().Lookup(RPC, "anything")
	assert.False(t, ok)

	cell.Store(nil)
	_, ok = cell.Load().Lookup(RPC, "anything")
	assert.False(t, ok)
}

func TestCallRPCRecoversPanic(t *testing.T) {
	desc := NewRPC("boom", func(ctx context.Context, args []any) (any, error) {
		panic("kaboom")
	}, []int{0}, false)

	_, err := desc.CallRPC(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

type lazyResult struct{ value any }

func (l lazyResult) Await(ctx context.Context) (any, error) {
	return l.value, nil
}

func TestCallRPCAwaitsLazy(t *testing.T) {
	desc := NewRPC("lazy", func(ctx context.Context, args []any) (any, error) {
		return lazyResult{value: 42}, nil
	}, []int{0}, false)

	result, err := desc.CallRPC(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}
