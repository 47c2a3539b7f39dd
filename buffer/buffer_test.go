package buffer_test

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/teenjuna/sendbuf/buffer"
	"github.com/teenjuna/sendbuf/internal/testing/require"
)

type Item struct {
	ID string
	N1 int
}

func items(n int) []Item {
	var input []Item
	for i := range n {
		input = append(input, Item{
			ID: strconv.Itoa(i),
			N1: rand.IntN(1000),
		})
	}
	return input
}

func TestSequencePush(t *testing.T) {
	input := items(1000)

	seq := buffer.New[Item](10)
	require.Equal(t, seq.Size(), 0)

	for i, item := range input {
		seq.Push(item)
		require.Equal(t, seq.Size(), i+1)
	}

	require.Equal(t, slices.Collect(seq.Iter()), input)
	require.Equal(t, seq.Snapshot(), input)

	seq.Reset()
	require.Equal(t, seq.Size(), 0)
	require.Equal(t, len(slices.Collect(seq.Iter())), 0)
}

func TestSequenceTakeFront(t *testing.T) {
	input := items(10)

	seq := buffer.New[Item](len(input))
	seq.Push(input...)

	taken := seq.TakeFront(4)
	require.Equal(t, taken, input[:4])
	require.Equal(t, seq.Snapshot(), input[4:])

	// Taken items are owned by the caller.
	taken[0] = Item{ID: "changed"}
	require.Equal(t, seq.Snapshot(), input[4:])

	require.Equal(t, seq.TakeFront(100), input[4:])
	require.Equal(t, seq.Size(), 0)
	require.Equal(t, seq.TakeFront(1), []Item{})
	require.Equal(t, seq.TakeFront(-1), []Item{})
}

func TestSequencePushFront(t *testing.T) {
	input := items(10)

	seq := buffer.New[Item](len(input))
	seq.Push(input...)

	taken := seq.TakeFront(5)
	seq.Push(items(3)...)
	rest := seq.Snapshot()

	seq.PushFront(taken...)
	require.Equal(t, seq.Snapshot(), append(slices.Clone(taken), rest...))

	// Inserting one by one from the back keeps the original order.
	seq.Reset()
	seq.Push(input[5:]...)
	for _, item := range slices.Backward(input[:5]) {
		seq.PushFront(item)
	}
	require.Equal(t, seq.Snapshot(), input)
}

func TestSequenceSnapshotIsCopy(t *testing.T) {
	input := items(3)

	seq := buffer.New[Item](len(input))
	seq.Push(input...)

	snapshot := seq.Snapshot()
	snapshot[0] = Item{ID: "changed"}
	require.Equal(t, seq.Snapshot(), input)
}

func TestNewValidation(t *testing.T) {
	require.PanicWithError(t, "capacity can't be < 0", func() {
		buffer.New[Item](-1)
	})
}
