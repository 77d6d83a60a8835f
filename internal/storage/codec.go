package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/voxel-world/internal/world"
)

// Первый байт значения - способ упаковки тела
const (
	codecRaw  byte = 0
	codecZstd byte = 1
)

// chunkCodec упаковывает файл чанка в значение key-value хранилища
type chunkCodec struct {
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	compress bool
}

func newChunkCodec(compress bool) (*chunkCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd-кодер: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("не удалось создать zstd-декодер: %w", err)
	}
	return &chunkCodec{encoder: encoder, decoder: decoder, compress: compress}, nil
}

func (cc *chunkCodec) pack(raw []byte) []byte {
	value := make([]byte, 0, len(raw)+1)
	if cc.compress {
		value = append(value, codecZstd)
		return cc.encoder.EncodeAll(raw, value)
	}
	value = append(value, codecRaw)
	return append(value, raw...)
}

func (cc *chunkCodec) unpack(value []byte) ([]byte, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("%w: пустое значение", world.ErrCorruptBody)
	}
	body := value[1:]
	switch value[0] {
	case codecRaw:
		return body, nil
	case codecZstd:
		raw, err := cc.decoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", world.ErrCorruptBody, err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: неизвестная упаковка %d", world.ErrCorruptBody, value[0])
	}
}

func (cc *chunkCodec) close() {
	cc.decoder.Close()
	cc.encoder.Close()
}
