package packet

// Client → server opcodes.
const (
	C_OPCODE_HELLO        byte = 0x01 // token S
	C_OPCODE_LOGIN        byte = 0x02 // account S, password S, lang S
	C_OPCODE_MOVE         byte = 0x03 // x F, y F, z F, yaw F, pitch F
	C_OPCODE_BATCH_PICKUP byte = 0x10 // isAuto C, limit C, n H, ids DU×n
	C_OPCODE_PICKUP_ITEM  byte = 0x11 // id DU
	C_OPCODE_QUIT         byte = 0x1F
)

// Server → client opcodes.
const (
	S_OPCODE_HELLO_OK    byte = 0x81
	S_OPCODE_DISCONNECT  byte = 0x82 // reason S
	S_OPCODE_LOGIN_OK    byte = 0x83 // player id DU, x F, y F, z F
	S_OPCODE_LOGIN_FAIL  byte = 0x84 // reason S
	S_OPCODE_LOOT_SPAWN  byte = 0x90 // id DU, x F, y F, z F, delay H, stack
	S_OPCODE_LOOT_UPDATE byte = 0x91 // id DU, count D, delay H
	S_OPCODE_LOOT_REMOVE byte = 0x92 // id DU
	S_OPCODE_SOUND       byte = 0xA0 // event S, volume F, pitch F
	S_OPCODE_NOTICE      byte = 0xA1 // key S, text S
	S_OPCODE_INVENTORY   byte = 0xA2 // n H, (slot H, type S, count D)×n
	S_OPCODE_PLAYER_POS  byte = 0xA3 // x F, y F, z F
)

// OpcodeName returns a readable opcode name for logs.
func OpcodeName(op byte) string {
	switch op {
	case C_OPCODE_HELLO:
		return "C_HELLO"
	case C_OPCODE_LOGIN:
		return "C_LOGIN"
	case C_OPCODE_MOVE:
		return "C_MOVE"
	case C_OPCODE_BATCH_PICKUP:
		return "C_BATCH_PICKUP"
	case C_OPCODE_PICKUP_ITEM:
		return "C_PICKUP_ITEM"
	case C_OPCODE_QUIT:
		return "C_QUIT"
	case S_OPCODE_HELLO_OK:
		return "S_HELLO_OK"
	case S_OPCODE_DISCONNECT:
		return "S_DISCONNECT"
	case S_OPCODE_LOGIN_OK:
		return "S_LOGIN_OK"
	case S_OPCODE_LOGIN_FAIL:
		return "S_LOGIN_FAIL"
	case S_OPCODE_LOOT_SPAWN:
		return "S_LOOT_SPAWN"
	case S_OPCODE_LOOT_UPDATE:
		return "S_LOOT_UPDATE"
	case S_OPCODE_LOOT_REMOVE:
		return "S_LOOT_REMOVE"
	case S_OPCODE_SOUND:
		return "S_SOUND"
	case S_OPCODE_NOTICE:
		return "S_NOTICE"
	case S_OPCODE_INVENTORY:
		return "S_INVENTORY"
	case S_OPCODE_PLAYER_POS:
		return "S_PLAYER_POS"
	}
	return "UNKNOWN"
}
