package client

// Action is the outcome of one pickup-button sample.
type Action uint8

const (
	ActionNone Action = iota
	ActionSingle
	ActionBatch
)

func (a Action) String() string {
	switch a {
	case ActionSingle:
		return "single"
	case ActionBatch:
		return "batch"
	}
	return "none"
}

// Disambiguator separates a short tap (Single) from a sustained hold (Batch)
// on one button. Releasing between the two thresholds cancels.
//
// Held ticks are counted from the press tick itself and only while targets
// exist, so a 3-tick tap counts 3 and a hold fires Batch on its 12th tick.
type Disambiguator struct {
	tap, hold int

	ticksHeld int
	wasDown   bool
	armed     bool // Batch already fired during this press
}

func NewDisambiguator(tapThreshold, holdThreshold int) *Disambiguator {
	return &Disambiguator{tap: tapThreshold, hold: holdThreshold}
}

// Tick samples the button once per step.
func (d *Disambiguator) Tick(down, hasTargets bool) Action {
	action := ActionNone
	if down {
		if !d.wasDown {
			d.ticksHeld = 0
			d.armed = false
		}
		if hasTargets && !d.armed {
			d.ticksHeld++
			if d.ticksHeld >= d.hold {
				action = ActionBatch
				d.armed = true
			}
		}
	} else {
		if d.wasDown && !d.armed && hasTargets && d.ticksHeld < d.tap {
			action = ActionSingle
		}
		d.ticksHeld = 0
		d.armed = false
	}
	d.wasDown = down
	return action
}

// Progress maps held time onto [0,1] between the tap and hold thresholds.
func (d *Disambiguator) Progress() float64 {
	if d.ticksHeld < d.tap {
		return 0
	}
	if d.armed {
		return 1
	}
	p := float64(d.ticksHeld-d.tap) / float64(d.hold-d.tap)
	return min(1, max(0, p))
}

// Interacting reports a press long enough to be more than a tap.
func (d *Disambiguator) Interacting() bool {
	return d.ticksHeld >= d.tap
}
