package client

// AutoScheduler throttles auto pickup to one batch per cooldown window.
type AutoScheduler struct {
	cooldown int
	max      int
}

func NewAutoScheduler(cooldownTicks int) *AutoScheduler {
	return &AutoScheduler{max: cooldownTicks}
}

// Tick reports whether an auto batch fires this step. The counter stays at
// zero while auto is off or nothing is listed, so the first eligible step
// fires at once.
func (s *AutoScheduler) Tick(enabled, hasTargets bool) bool {
	if !enabled || !hasTargets {
		s.cooldown = 0
		return false
	}
	if s.cooldown <= 0 {
		s.cooldown = s.max
		return true
	}
	s.cooldown--
	return false
}

func (s *AutoScheduler) Reset() { s.cooldown = 0 }
