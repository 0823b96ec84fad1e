package chunk

// Chunk is an immutable segment of captured audio bytes. Seq is the
// ingestion position within the session, counted across pause boundaries.
type Chunk struct {
	Seq  int
	Data []byte
}

// Buffer accumulates chunks across pause/resume cycles. Chunks from
// completed pause spans live in committed; chunks of the current span live
// in active. committed followed by active is always in ingestion order.
type Buffer struct {
	committed []Chunk
	active    []Chunk
	nextSeq   int
	bytes     int
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append copies data into a new chunk at the end of the active span.
// Empty data is ignored.
func (b *Buffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	b.active = append(b.active, Chunk{Seq: b.nextSeq, Data: buf})
	b.nextSeq++
	b.bytes += len(buf)
}

// CommitActive moves the active span onto the end of the committed
// sequence. Called at pause boundaries.
func (b *Buffer) CommitActive() {
	b.committed = append(b.committed, b.active...)
	b.active = nil
}

// Chunks returns the full ingestion-ordered sequence: committed spans in
// pause order, then the current active span.
func (b *Buffer) Chunks() []Chunk {
	out := make([]Chunk, 0, len(b.committed)+len(b.active))
	out = append(out, b.committed...)
	out = append(out, b.active...)
	return out
}

// Len returns the total number of buffered bytes.
func (b *Buffer) Len() int {
	return b.bytes
}

// Count returns the total number of buffered chunks.
func (b *Buffer) Count() int {
	return len(b.committed) + len(b.active)
}

// Reset discards all chunk data, committed and active.
func (b *Buffer) Reset() {
	b.committed = nil
	b.active = nil
	b.nextSeq = 0
	b.bytes = 0
}
