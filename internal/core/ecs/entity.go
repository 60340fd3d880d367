package ecs

// EntityID packs a 24-bit slot index in the low bits and an 8-bit generation
// in the high bits so ids fit the 32-bit wire field. Generation increments on
// destroy, so an id held across a destroy stops resolving.
type EntityID uint32

const (
	indexBits = 24
	indexMask = 1<<indexBits - 1
	maxIndex  = indexMask
)

func NewEntityID(index uint32, generation uint8) EntityID {
	return EntityID(uint32(generation)<<indexBits | index&indexMask)
}

func (id EntityID) Index() uint32     { return uint32(id) & indexMask }
func (id EntityID) Generation() uint8 { return uint8(uint32(id) >> indexBits) }
func (id EntityID) IsZero() bool      { return id == 0 }

// EntityPool manages entity allocation with generational indices and a free list.
// Slot 0 is reserved so the zero id never names a live entity.
type EntityPool struct {
	generations []uint8
	live        []bool
	freeList    []uint32
	nextIndex   uint32
	alive       int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint8, 1, 1024),
		live:        make([]bool, 1, 1024),
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
	}
}

// Create allocates an id. It returns the zero id once all slots are in use.
func (p *EntityPool) Create() EntityID {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		p.live[idx] = true
		p.alive++
		return NewEntityID(idx, p.generations[idx])
	}
	if p.nextIndex > maxIndex {
		return 0
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 0)
	p.live = append(p.live, true)
	p.alive++
	return NewEntityID(idx, 0)
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.live[idx] && p.generations[idx] == id.Generation()
}

func (p *EntityPool) Destroy(id EntityID) {
	if !p.Alive(id) {
		return // already destroyed (stale reference)
	}
	idx := id.Index()
	p.generations[idx]++
	p.live[idx] = false
	p.freeList = append(p.freeList, idx)
	p.alive--
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int { return p.alive }
