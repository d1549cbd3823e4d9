// Package crypto seals replication frames with Blowfish and an XOR checksum.
package crypto

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

// MaxKeyLen is the longest key Blowfish accepts.
const MaxKeyLen = 56

func newBlock(key []byte) (cipher.Block, error) {
	if len(key) > MaxKeyLen {
		return nil, fmt.Errorf("cipher key is %d bytes, max %d", len(key), MaxKeyLen)
	}
	c, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating blowfish cipher: %w", err)
	}
	return c, nil
}

// ecb runs fn over every block of buf in place. len(buf) must be a multiple
// of blowfish.BlockSize.
func ecb(buf []byte, fn func(dst, src []byte)) {
	for i := 0; i+blowfish.BlockSize <= len(buf); i += blowfish.BlockSize {
		blk := buf[i : i+blowfish.BlockSize]
		fn(blk, blk)
	}
}

// xorWords folds buf into one little-endian word.
func xorWords(buf []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(buf); i += 4 {
		sum ^= binary.LittleEndian.Uint32(buf[i:])
	}
	return sum
}

// putChecksum stores the XOR of the preceding words in the last word, so
// the whole buffer folds to zero.
func putChecksum(buf []byte) {
	binary.LittleEndian.PutUint32(buf[len(buf)-4:], xorWords(buf[:len(buf)-4]))
}

func checksumOK(buf []byte) bool {
	return len(buf) > 4 && len(buf)%4 == 0 && xorWords(buf) == 0
}
