package cache

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Encoder appends length-delimited fields to a buffer.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) WriteString(s string) {
	e.buf = protowire.AppendString(e.buf, s)
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads fields in the order an Encoder wrote them.
type Decoder struct {
	buf []byte
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

func (d *Decoder) ReadString() (string, error) {
	s, n := protowire.ConsumeString(d.buf)
	if n < 0 {
		return "", fmt.Errorf("reading string field: %w", protowire.ParseError(n))
	}
	d.buf = d.buf[n:]
	return s, nil
}

// Remaining is the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf)
}

// Serializer writes and reads values of one record type.
type Serializer[T any] interface {
	Write(enc *Encoder, value T) error
	Read(dec *Decoder) (T, error)
}
