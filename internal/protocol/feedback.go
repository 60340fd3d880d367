package protocol

import (
	"fmt"

	"github.com/lootgo/server/internal/net/packet"
)

// Sound event ids and their fixed parameters.
const (
	SoundPickup      = "random.pickup"
	SoundFail        = "random.fail"
	PickupVolume     = 0.2
	FailVolume       = 0.5
	FailPitch        = 1.2
	NoticeInvFull    = "message.inventory_full"
	NoticeAutoOn     = "message.auto_on"
	NoticeAutoOff    = "message.auto_off"
	NoticeFilterAll  = "message.filter_all"
	NoticeFilterRare = "message.filter_rare"
)

// SoundCue is a positional-less sound played to one player.
type SoundCue struct {
	Event  string
	Volume float32
	Pitch  float32
}

// PickupPitch randomizes the pickup cue from two uniform samples in [0,1) so
// repeated pickups within a tick do not sound identical.
func PickupPitch(r1, r2 float64) float32 {
	return float32(((r1-r2)*0.7 + 1) * 2)
}

func (c SoundCue) Encode() []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_SOUND)
	w.WriteS(c.Event)
	w.WriteF(c.Volume)
	w.WriteF(c.Pitch)
	return w.Bytes()
}

func DecodeSoundCue(r *packet.Reader) (SoundCue, error) {
	c := SoundCue{Event: r.ReadS(), Volume: r.ReadF(), Pitch: r.ReadF()}
	if r.Overrun() {
		return SoundCue{}, fmt.Errorf("%w: sound", ErrMalformed)
	}
	return c, nil
}

// Notice is a transient localized message. Key identifies it; Text is the
// rendering in the receiver's language.
type Notice struct {
	Key  string
	Text string
}

func (n Notice) Encode() []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_NOTICE)
	w.WriteS(n.Key)
	w.WriteS(n.Text)
	return w.Bytes()
}

func DecodeNotice(r *packet.Reader) (Notice, error) {
	n := Notice{Key: r.ReadS(), Text: r.ReadS()}
	if r.Overrun() {
		return Notice{}, fmt.Errorf("%w: notice", ErrMalformed)
	}
	return n, nil
}
