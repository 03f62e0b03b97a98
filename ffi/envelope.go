package ffi

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// envelope is the MessagePack frame exchanged across the boundary. The
// payload is a zstd-compressed Arrow IPC stream holding the record batches.
type envelope struct {
	Codec   string `msgpack:"codec"`
	Payload []byte `msgpack:"payload"`
}

const codecZstdIPC = "zstd+ipc"

// Reusable zstd codecs. EncodeAll/DecodeAll are goroutine-safe.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// EncodeBatch serializes a record batch into the envelope format.
func EncodeBatch(batch arrow.RecordBatch) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(batch.Schema()))
	if err := w.Write(batch); err != nil {
		return nil, fmt.Errorf("write ipc stream: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close ipc stream: %w", err)
	}
	compressed := zstdEncoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()/2))
	data, err := msgpack.Marshal(envelope{Codec: codecZstdIPC, Payload: compressed})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// EncodeStream serializes zero or more record batches sharing one schema.
// Table-function entry points use it: their output is a stream, and the
// IPC format carries any number of batches behind a single schema message.
func EncodeStream(schema *arrow.Schema, batches []arrow.RecordBatch) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	for _, batch := range batches {
		if err := w.Write(batch); err != nil {
			return nil, fmt.Errorf("write ipc stream: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close ipc stream: %w", err)
	}
	compressed := zstdEncoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()/2))
	data, err := msgpack.Marshal(envelope{Codec: codecZstdIPC, Payload: compressed})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeStream deserializes an envelope holding any number of batches. The
// caller owns every returned batch and must release each one.
func DecodeStream(data []byte) ([]arrow.RecordBatch, error) {
	raw, err := decodePayload(data)
	if err != nil {
		return nil, err
	}
	rdr, err := ipc.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open ipc stream: %w", err)
	}
	defer rdr.Release()
	var out []arrow.RecordBatch
	for rdr.Next() {
		batch := rdr.RecordBatch()
		batch.Retain()
		out = append(out, batch)
	}
	if err := rdr.Err(); err != nil {
		for _, b := range out {
			b.Release()
		}
		return nil, fmt.Errorf("read ipc stream: %w", err)
	}
	return out, nil
}

func decodePayload(data []byte) ([]byte, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Codec != codecZstdIPC {
		return nil, fmt.Errorf("unsupported envelope codec %q", env.Codec)
	}
	raw, err := zstdDecoder.DecodeAll(env.Payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return raw, nil
}

// DecodeBatch deserializes an envelope back into a record batch. The caller
// owns the returned batch and must release it.
func DecodeBatch(data []byte) (arrow.RecordBatch, error) {
	raw, err := decodePayload(data)
	if err != nil {
		return nil, err
	}
	rdr, err := ipc.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open ipc stream: %w", err)
	}
	defer rdr.Release()
	if !rdr.Next() {
		if err := rdr.Err(); err != nil {
			return nil, fmt.Errorf("read ipc stream: %w", err)
		}
		return nil, fmt.Errorf("ipc stream contains no batch")
	}
	batch := rdr.RecordBatch()
	batch.Retain()
	return batch, nil
}
