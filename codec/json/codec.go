package json

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"

	"github.com/teenjuna/sendbuf/codec"
)

var _ codec.Codec[any] = (*Codec[any])(nil)

// Codec encodes a batch as one JSON array followed by a newline.
type Codec[Item any] struct {
	buf *bytes.Buffer
}

func New[Item any]() *Codec[Item] {
	return &Codec[Item]{
		buf: new(bytes.Buffer),
	}
}

func (c *Codec[Item]) Encode(batch iter.Seq[Item]) ([]byte, error) {
	items := slices.Collect(batch)
	if items == nil {
		items = make([]Item, 0)
	}

	c.buf.Reset()
	if err := json.NewEncoder(c.buf).Encode(items); err != nil {
		return nil, err
	}

	return bytes.Clone(c.buf.Bytes()), nil
}

func (c *Codec[Item]) Decode(data []byte, push func(Item)) error {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	for _, item := range items {
		push(item)
	}
	return nil
}

func (c *Codec[Item]) ContentType() string {
	return "application/json"
}

func (c *Codec[Item]) Derive() codec.Codec[Item] {
	return New[Item]()
}
