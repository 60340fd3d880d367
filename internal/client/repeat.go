package client

// KeyRepeat turns a held key into discrete steps: one on the first held
// tick, a pause, then one every third tick from tick 12 on.
type KeyRepeat struct {
	held int
}

// Tick samples the key and reports whether a step fires this tick.
func (k *KeyRepeat) Tick(down bool) bool {
	if !down {
		k.held = 0
		return false
	}
	k.held++
	return k.held == 1 || (k.held > 10 && k.held%3 == 0)
}
