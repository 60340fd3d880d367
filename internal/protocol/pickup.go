// Package protocol encodes and decodes the messages exchanged between the
// loot client and the authority.
package protocol

import (
	"errors"
	"fmt"

	"github.com/lootgo/server/internal/net/packet"
)

// ErrMalformed wraps every decode failure.
var ErrMalformed = errors.New("malformed packet")

// MaxTargets bounds the ids one batch request may carry.
const MaxTargets = 4096

// PickupRequest asks the authority to move the listed drops, in order, into
// the sender's inventory. IsAuto suppresses failure feedback; LimitToMaxStack
// caps the accepted total at one stack.
type PickupRequest struct {
	TargetIDs       []uint32
	IsAuto          bool
	LimitToMaxStack bool
}

// Encode writes C_BATCH_PICKUP. Requests over MaxTargets must be split with
// Chunks first.
func (p PickupRequest) Encode() ([]byte, error) {
	if len(p.TargetIDs) > MaxTargets {
		return nil, fmt.Errorf("pickup request: %d targets exceeds %d", len(p.TargetIDs), MaxTargets)
	}
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_BATCH_PICKUP)
	w.WriteBool(p.IsAuto)
	w.WriteBool(p.LimitToMaxStack)
	w.WriteH(uint16(len(p.TargetIDs)))
	for _, id := range p.TargetIDs {
		w.WriteDU(id)
	}
	return w.Bytes(), nil
}

// Chunks splits the request into pieces of at most n ids, keeping order and
// flags. A LimitToMaxStack request is truncated to its first n ids instead;
// each packet gets its own one-stack quota on the server.
func (p PickupRequest) Chunks(n int) []PickupRequest {
	if n <= 0 || len(p.TargetIDs) <= n {
		return []PickupRequest{p}
	}
	if p.LimitToMaxStack {
		p.TargetIDs = p.TargetIDs[:n]
		return []PickupRequest{p}
	}
	var out []PickupRequest
	for start := 0; start < len(p.TargetIDs); start += n {
		end := min(start+n, len(p.TargetIDs))
		out = append(out, PickupRequest{
			TargetIDs:       p.TargetIDs[start:end],
			IsAuto:          p.IsAuto,
			LimitToMaxStack: p.LimitToMaxStack,
		})
	}
	return out
}

// DecodePickupRequest reads C_BATCH_PICKUP. maxTargets <= 0 means MaxTargets.
func DecodePickupRequest(r *packet.Reader, maxTargets int) (PickupRequest, error) {
	if maxTargets <= 0 || maxTargets > MaxTargets {
		maxTargets = MaxTargets
	}
	var p PickupRequest
	p.IsAuto = r.ReadBool()
	p.LimitToMaxStack = r.ReadBool()
	n := int(r.ReadH())
	if r.Overrun() {
		return PickupRequest{}, fmt.Errorf("%w: truncated batch header", ErrMalformed)
	}
	if n > maxTargets {
		return PickupRequest{}, fmt.Errorf("%w: %d targets exceeds %d", ErrMalformed, n, maxTargets)
	}
	if r.Remaining() < n*4 {
		return PickupRequest{}, fmt.Errorf("%w: %d targets need %d bytes, have %d", ErrMalformed, n, n*4, r.Remaining())
	}
	p.TargetIDs = make([]uint32, n)
	for i := range p.TargetIDs {
		p.TargetIDs[i] = r.ReadDU()
	}
	return p, nil
}

// EncodePickupItem writes the single-target C_PICKUP_ITEM.
func EncodePickupItem(id uint32) []byte {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_PICKUP_ITEM)
	w.WriteDU(id)
	return w.Bytes()
}

// DecodePickupItem reads C_PICKUP_ITEM as a one-target manual request.
func DecodePickupItem(r *packet.Reader) (PickupRequest, error) {
	id := r.ReadDU()
	if r.Overrun() {
		return PickupRequest{}, fmt.Errorf("%w: truncated pickup item", ErrMalformed)
	}
	return PickupRequest{TargetIDs: []uint32{id}}, nil
}
