package pool

// Buffer is a pool-backed, append-only byte region with pool-cheap growth:
// because a Buffer is always the most recent allocation on its Pool for as
// long as it keeps growing, Grow never has to copy — it's the same
// Pool.Reallocate trick the teacher's internal/buffer.Buffer leans on,
// specialized for the read/write buffers described in spec §3/§4.1.
type Buffer struct {
	pool *Pool
	data []byte
	n    int
}

// NewBuffer carves initialSize bytes off p for a new Buffer. Per spec
// §4.1, the request FSM sizes the read buffer's initial allocation as
// half the pool's current free space.
func NewBuffer(p *Pool, initialSize int) (*Buffer, bool) {
	data, ok := p.Allocate(initialSize)
	if !ok {
		return nil, false
	}

	return &Buffer{pool: p, data: data}, true
}

// Bytes returns the portion of the buffer actually written to.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the buffer's current backing capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Tail returns the unwritten suffix of the buffer, the destination slice
// for the next wire adapter recv()/send() call.
func (b *Buffer) Tail() []byte {
	return b.data[b.n:]
}

// Advance records that n more bytes of the tail were filled in (by a
// recv()) or drained (tracked separately by the caller for sends).
func (b *Buffer) Advance(n int) {
	b.n += n
}

// Reset rewinds the buffer to empty without touching its backing
// allocation or the pool — used between the read and write phase of the
// same pool generation where the capacity can be kept.
func (b *Buffer) Reset() {
	b.n = 0
}

// Grow extends the backing allocation by increment bytes. Only valid
// while this Buffer remains the pool's most recent allocation; once a
// later allocation has been made (e.g. headers were carved off after
// this buffer), Grow fails and the caller must treat it the same as pool
// exhaustion (spec §4.1: 431 in the header phase, 413 in the body phase).
func (b *Buffer) Grow(increment int) bool {
	grown, ok := b.pool.Reallocate(b.data, len(b.data)+increment)
	if !ok {
		return false
	}

	b.data = grown

	return true
}

// GrowToFit grows the buffer by increment-sized steps until its tail can
// hold at least need more bytes, or growth is refused by the pool —
// implementing the read-buffer growth rule of spec §4.1 verbatim: "grow
// additively by connection_memory_increment_b... up to the pool's
// remaining free space."
func (b *Buffer) GrowToFit(need, increment int) bool {
	for len(b.data)-b.n < need {
		if !b.Grow(increment) {
			return false
		}
	}

	return true
}
