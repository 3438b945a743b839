package cache

import (
	"math"

	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes values for size estimation.
type Codec interface {
	Marshal(value any) ([]byte, error)
}

// JSONCodec measures the textual JSON representation of a value.
type JSONCodec struct{}

func (JSONCodec) Marshal(value any) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(value)
}

// MsgpackCodec measures the msgpack encoding of a value.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

// entrySize is len(key) plus the encoded value length. Values the codec
// rejects count as zero bytes.
func entrySize(codec Codec, key string, value any) int {
	data, err := codec.Marshal(value)
	if err != nil {
		return len(key)
	}
	return len(key) + len(data)
}

func bytesToKB(n int) int {
	return int(math.Round(float64(n) / 1024))
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*100*100) / 100
}
