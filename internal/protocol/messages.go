package protocol

import (
	"fmt"

	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/net/packet"
)

// Hello opens a connection; Token must equal the server's compatibility token.
type Hello struct {
	Token string
}

func (m Hello) Encode() []byte {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_HELLO)
	w.WriteS(m.Token)
	return w.Bytes()
}

func DecodeHello(r *packet.Reader) (Hello, error) {
	m := Hello{Token: r.ReadS()}
	if r.Overrun() {
		return Hello{}, fmt.Errorf("%w: hello", ErrMalformed)
	}
	return m, nil
}

type Login struct {
	Account  string
	Password string
	Lang     string
}

func (m Login) Encode() []byte {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_LOGIN)
	w.WriteS(m.Account)
	w.WriteS(m.Password)
	w.WriteS(m.Lang)
	return w.Bytes()
}

func DecodeLogin(r *packet.Reader) (Login, error) {
	m := Login{Account: r.ReadS(), Password: r.ReadS(), Lang: r.ReadS()}
	if r.Overrun() {
		return Login{}, fmt.Errorf("%w: login", ErrMalformed)
	}
	return m, nil
}

// Move reports the client's position and view angles.
type Move struct {
	Pos   loot.Vec3
	Yaw   float32
	Pitch float32
}

func (m Move) Encode() []byte {
	w := packet.NewWriterWithOpcode(packet.C_OPCODE_MOVE)
	writeVec(w, m.Pos)
	w.WriteF(m.Yaw)
	w.WriteF(m.Pitch)
	return w.Bytes()
}

func DecodeMove(r *packet.Reader) (Move, error) {
	m := Move{Pos: readVec(r), Yaw: r.ReadF(), Pitch: r.ReadF()}
	if r.Overrun() {
		return Move{}, fmt.Errorf("%w: move", ErrMalformed)
	}
	return m, nil
}

// LoginOK carries the spawned player's id and position.
type LoginOK struct {
	PlayerID uint32
	Pos      loot.Vec3
}

func (m LoginOK) Encode() []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_LOGIN_OK)
	w.WriteDU(m.PlayerID)
	writeVec(w, m.Pos)
	return w.Bytes()
}

func DecodeLoginOK(r *packet.Reader) (LoginOK, error) {
	m := LoginOK{PlayerID: r.ReadDU(), Pos: readVec(r)}
	if r.Overrun() {
		return LoginOK{}, fmt.Errorf("%w: login ok", ErrMalformed)
	}
	return m, nil
}

// EncodeReason builds S_DISCONNECT or S_LOGIN_FAIL.
func EncodeReason(opcode byte, reason string) []byte {
	w := packet.NewWriterWithOpcode(opcode)
	w.WriteS(reason)
	return w.Bytes()
}

func DecodeReason(r *packet.Reader) string {
	return r.ReadS()
}

// LootSpawn announces a drop entering the receiver's view.
type LootSpawn struct {
	ID    uint32
	Pos   loot.Vec3
	Delay int
	Stack loot.ItemStack
}

const (
	flagStackable = 1 << 0
	flagEnchanted = 1 << 1
)

func (m LootSpawn) Encode() []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_LOOT_SPAWN)
	w.WriteDU(m.ID)
	writeVec(w, m.Pos)
	w.WriteH(clampU16(m.Delay))
	writeStack(w, m.Stack)
	return w.Bytes()
}

func DecodeLootSpawn(r *packet.Reader) (LootSpawn, error) {
	m := LootSpawn{ID: r.ReadDU(), Pos: readVec(r), Delay: int(r.ReadH())}
	m.Stack = readStack(r)
	if r.Overrun() {
		return LootSpawn{}, fmt.Errorf("%w: loot spawn", ErrMalformed)
	}
	return m, nil
}

// LootUpdate carries a changed ground count or pickup delay.
type LootUpdate struct {
	ID    uint32
	Count int
	Delay int
}

func (m LootUpdate) Encode() []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_LOOT_UPDATE)
	w.WriteDU(m.ID)
	w.WriteD(int32(m.Count))
	w.WriteH(clampU16(m.Delay))
	return w.Bytes()
}

func DecodeLootUpdate(r *packet.Reader) (LootUpdate, error) {
	m := LootUpdate{ID: r.ReadDU(), Count: int(r.ReadD()), Delay: int(r.ReadH())}
	if r.Overrun() {
		return LootUpdate{}, fmt.Errorf("%w: loot update", ErrMalformed)
	}
	return m, nil
}

func EncodeLootRemove(id uint32) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_LOOT_REMOVE)
	w.WriteDU(id)
	return w.Bytes()
}

func DecodeLootRemove(r *packet.Reader) (uint32, error) {
	id := r.ReadDU()
	if r.Overrun() {
		return 0, fmt.Errorf("%w: loot remove", ErrMalformed)
	}
	return id, nil
}

// EncodePlayerPos tells the client where the authority has the player.
func EncodePlayerPos(pos loot.Vec3) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_PLAYER_POS)
	writeVec(w, pos)
	return w.Bytes()
}

func DecodePlayerPos(r *packet.Reader) (loot.Vec3, error) {
	v := readVec(r)
	if r.Overrun() {
		return loot.Vec3{}, fmt.Errorf("%w: player pos", ErrMalformed)
	}
	return v, nil
}

// SlotUpdate is one changed inventory slot; Count 0 means the slot emptied.
type SlotUpdate struct {
	Slot  int
	Type  string
	Count int
}

func EncodeInventory(updates []SlotUpdate) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_INVENTORY)
	w.WriteH(uint16(len(updates)))
	for _, u := range updates {
		w.WriteH(uint16(u.Slot))
		w.WriteS(u.Type)
		w.WriteD(int32(u.Count))
	}
	return w.Bytes()
}

func DecodeInventory(r *packet.Reader) ([]SlotUpdate, error) {
	n := int(r.ReadH())
	out := make([]SlotUpdate, 0, n)
	for i := 0; i < n && !r.Overrun(); i++ {
		out = append(out, SlotUpdate{Slot: int(r.ReadH()), Type: r.ReadS(), Count: int(r.ReadD())})
	}
	if r.Overrun() {
		return nil, fmt.Errorf("%w: inventory", ErrMalformed)
	}
	return out, nil
}

func writeVec(w *packet.Writer, v loot.Vec3) {
	w.WriteF(float32(v.X))
	w.WriteF(float32(v.Y))
	w.WriteF(float32(v.Z))
}

func readVec(r *packet.Reader) loot.Vec3 {
	return loot.Vec3{X: float64(r.ReadF()), Y: float64(r.ReadF()), Z: float64(r.ReadF())}
}

func writeStack(w *packet.Writer, s loot.ItemStack) {
	w.WriteS(s.Type)
	w.WriteS(s.Name)
	w.WriteS(s.Meta)
	w.WriteD(int32(s.Count))
	var flags byte
	if s.Stackable {
		flags |= flagStackable
	}
	if s.Enchanted {
		flags |= flagEnchanted
	}
	w.WriteC(flags)
	w.WriteH(clampU16(s.MaxStack))
	w.WriteC(byte(s.Rarity))
	w.WriteH(clampU16(s.MaxDurability))
	w.WriteS(s.Category)
}

func readStack(r *packet.Reader) loot.ItemStack {
	s := loot.ItemStack{
		Type:  r.ReadS(),
		Name:  r.ReadS(),
		Meta:  r.ReadS(),
		Count: int(r.ReadD()),
	}
	flags := r.ReadC()
	s.Stackable = flags&flagStackable != 0
	s.Enchanted = flags&flagEnchanted != 0
	s.MaxStack = int(r.ReadH())
	s.Rarity = loot.Rarity(r.ReadC())
	s.MaxDurability = int(r.ReadH())
	s.Category = r.ReadS()
	return s
}

func clampU16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
