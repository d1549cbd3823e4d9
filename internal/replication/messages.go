// Package replication moves scale state from the authoritative world to
// presentation replicas: dirty states are drained every step, encoded into
// batches and broadcast over WebSocket.
package replication

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/udisondev/scalekit/internal/packet"
	"github.com/udisondev/scalekit/internal/scale"
)

// Message opcodes, the first byte of every batch.
const (
	OpDelta    byte = 0x01
	OpKeyframe byte = 0x02
	OpDespawn  byte = 0x03
)

// maxBatchEntries bounds decoded counts so a corrupt header cannot force a
// huge allocation.
const maxBatchEntries = 1 << 20

// ErrUnknownOp is returned for a batch with an unrecognised opcode.
var ErrUnknownOp = errors.New("unknown batch opcode")

// EncodeStates builds a delta or keyframe batch:
//
//	op | i32 count | count × (u32 entity | string kind | string category | state)
//
// States without an attached entity are skipped.
func EncodeStates(op byte, states []*scale.State) []byte {
	w := packet.Get()
	defer w.Put()

	_ = w.WriteByte(op)
	n := 0
	for _, s := range states {
		if s.Entity() != nil {
			n++
		}
	}
	w.WriteInt(int32(n))
	for _, s := range states {
		e := s.Entity()
		if e == nil {
			continue
		}
		w.WriteUint(e.ObjectID())
		w.WriteString(string(e.Kind()))
		w.WriteString(s.Category().ID())
		s.WriteWire(w)
	}
	return bytes.Clone(w.Bytes())
}

// EncodeDespawn builds a batch listing removed entities.
func EncodeDespawn(ids []uint32) []byte {
	w := packet.Get()
	defer w.Put()

	_ = w.WriteByte(OpDespawn)
	w.WriteInt(int32(len(ids)))
	for _, id := range ids {
		w.WriteUint(id)
	}
	return bytes.Clone(w.Bytes())
}

// entryHeader precedes every state in a delta or keyframe batch.
type entryHeader struct {
	objectID uint32
	kind     scale.Kind
	category string
}

func readCount(r *packet.Reader) (int, error) {
	n, err := r.ReadInt()
	if err != nil {
		return 0, fmt.Errorf("reading count: %w", err)
	}
	if n < 0 || n > maxBatchEntries {
		return 0, fmt.Errorf("batch count %d out of range", n)
	}
	return int(n), nil
}

func readEntryHeader(r *packet.Reader) (entryHeader, error) {
	var h entryHeader
	var err error
	if h.objectID, err = r.ReadUint(); err != nil {
		return h, fmt.Errorf("reading entity id: %w", err)
	}
	kind, err := r.ReadString()
	if err != nil {
		return h, fmt.Errorf("reading entity kind: %w", err)
	}
	h.kind = scale.Kind(kind)
	if h.category, err = r.ReadString(); err != nil {
		return h, fmt.Errorf("reading category: %w", err)
	}
	return h, nil
}
