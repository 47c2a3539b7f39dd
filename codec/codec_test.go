package codec_test

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/teenjuna/sendbuf/codec"
	"github.com/teenjuna/sendbuf/codec/gob"
	"github.com/teenjuna/sendbuf/codec/json"
	"github.com/teenjuna/sendbuf/internal/testing/require"
)

type Item struct {
	ID string
	N1 int
	N2 float64
}

func TestCodecs(t *testing.T) {
	codecs := map[string]codec.Codec[Item]{
		"json": json.New[Item](),
		"gob":  gob.New[Item](),
	}

	var items []Item
	for i := range 1000 {
		items = append(items, Item{
			ID: strconv.Itoa(i),
			N1: rand.IntN(1000),
			N2: float64(rand.IntN(1000)) / 4,
		})
	}

	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			require.NotEqual(t, c.ContentType(), "")

			data, err := c.Encode(slices.Values(items))
			require.Nil(t, err)
			require.NotEqual(t, len(data), 0)

			// The payload must survive the next Encode on the same codec.
			first := slices.Clone(data)
			_, err = c.Encode(slices.Values(items[:1]))
			require.Nil(t, err)
			require.Equal(t, data, first)

			var decoded []Item
			require.Nil(t, c.Derive().Decode(data, func(item Item) {
				decoded = append(decoded, item)
			}))
			require.Equal(t, decoded, items)
		})
	}
}

func TestJSONEmptyBatch(t *testing.T) {
	data, err := json.New[Item]().Encode(slices.Values([]Item(nil)))
	require.Nil(t, err)
	require.Equal(t, string(data), "[]\n")
}

func TestDecodeError(t *testing.T) {
	push := func(Item) { t.Fatal("unexpected item") }
	require.NotNil(t, json.New[Item]().Decode([]byte("{"), push))
	require.NotNil(t, gob.New[Item]().Decode([]byte{1, 2, 3}, push))
}
