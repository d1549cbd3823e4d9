package crypto

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

// ErrChecksum is returned by Open when a frame fails verification.
var ErrChecksum = errors.New("frame checksum mismatch")

const (
	lengthSize   = 4
	checksumSize = 4
)

// FrameCipher seals replication frames. Layout before encryption:
//
//	u32 payload length | payload | zero padding | u32 checksum
//
// padded so the whole frame is a multiple of the block size. A nil
// *FrameCipher passes payloads through untouched.
type FrameCipher struct {
	block cipher.Block
}

// NewFrameCipher returns nil for an empty key.
func NewFrameCipher(key []byte) (*FrameCipher, error) {
	if len(key) == 0 {
		return nil, nil
	}
	b, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	return &FrameCipher{block: b}, nil
}

// FrameSize returns the sealed size of an n-byte payload.
func FrameSize(n int) int {
	size := lengthSize + n + checksumSize
	if rem := size % blowfish.BlockSize; rem != 0 {
		size += blowfish.BlockSize - rem
	}
	return size
}

// Seal returns a new encrypted frame holding payload.
func (f *FrameCipher) Seal(payload []byte) ([]byte, error) {
	if f == nil {
		return payload, nil
	}
	if uint64(len(payload)) > 1<<31 {
		return nil, fmt.Errorf("sealing frame: payload of %d bytes", len(payload))
	}

	frame := make([]byte, FrameSize(len(payload)))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[lengthSize:], payload)
	putChecksum(frame)
	ecb(frame, f.block.Encrypt)
	return frame, nil
}

// Open decrypts frame in place and returns the payload it carries.
func (f *FrameCipher) Open(frame []byte) ([]byte, error) {
	if f == nil {
		return frame, nil
	}

	if len(frame) < blowfish.BlockSize || len(frame)%blowfish.BlockSize != 0 {
		return nil, fmt.Errorf("opening frame: bad length %d", len(frame))
	}
	ecb(frame, f.block.Decrypt)
	if !checksumOK(frame) {
		return nil, ErrChecksum
	}

	n := binary.LittleEndian.Uint32(frame)
	if uint64(n) > uint64(len(frame)-lengthSize-checksumSize) {
		return nil, fmt.Errorf("opening frame: payload length %d exceeds frame", n)
	}
	return frame[lengthSize : lengthSize+int(n)], nil
}
