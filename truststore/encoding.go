package truststore

import (
	"bytes"
	"encoding/binary"
	"io"
)

type byteWriter struct {
	buf bytes.Buffer
}

func newByteWriter() *byteWriter { return &byteWriter{} }

func (w *byteWriter) writeUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *byteWriter) writeBytes(b []byte) {
	w.writeUint32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *byteWriter) bytes() []byte { return w.buf.Bytes() }

type byteReaderCursor struct {
	r *bytes.Reader
}

func newByteReader(data []byte) *byteReaderCursor {
	return &byteReaderCursor{r: bytes.NewReader(data)}
}

func (c *byteReaderCursor) readUint32() (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(c.r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func (c *byteReaderCursor) readBytes() ([]byte, error) {
	n, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(c.r, out); err != nil {
		return nil, err
	}
	return out, nil
}
