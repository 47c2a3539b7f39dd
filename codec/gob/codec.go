package gob

import (
	"bytes"
	"encoding/gob"
	"errors"
	"io"
	"iter"

	"github.com/teenjuna/sendbuf/codec"
)

var _ codec.Codec[any] = (*Codec[any])(nil)

// Codec encodes a batch as a stream of gob values, one per item.
type Codec[Item any] struct {
	buf *bytes.Buffer
}

func New[Item any]() *Codec[Item] {
	return &Codec[Item]{
		buf: new(bytes.Buffer),
	}
}

func (c *Codec[Item]) Encode(batch iter.Seq[Item]) ([]byte, error) {
	c.buf.Reset()
	enc := gob.NewEncoder(c.buf)

	for item := range batch {
		if err := enc.Encode(&item); err != nil {
			return nil, err
		}
	}

	return bytes.Clone(c.buf.Bytes()), nil
}

func (c *Codec[Item]) Decode(data []byte, push func(Item)) error {
	dec := gob.NewDecoder(bytes.NewReader(data))

	for {
		var item Item
		err := dec.Decode(&item)
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		push(item)
	}
}

func (c *Codec[Item]) ContentType() string {
	return "application/x-gob"
}

func (c *Codec[Item]) Derive() codec.Codec[Item] {
	return New[Item]()
}
