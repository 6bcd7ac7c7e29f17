package token

import (
	"math"

	"github.com/jqstream/jqstream/internal/debug"
)

const (
	// smallWindowCap is the window capacity below which shrinking always
	// reuses the existing backing array rather than weighing utilization.
	smallWindowCap = 1024

	// reclaimEvery bounds how many cursor advances happen between
	// advanceWindow calls. jq's `,` and path expressions fork a token
	// stream every time they need to replay the same input to two
	// branches (CloneReadStream below), so a filter like
	// `.a, .b, .c` can leave a cursor per branch; this keeps the window
	// from growing unbounded while a slow branch lags behind.
	reclaimEvery = 100
)

// CursorPool backs every forked branch of a token stream with one shared,
// append-only window: each Cursor is just a position into it, so forking
// a stream (CloneReadStream) for jq's comma operator or lookahead costs a
// position integer, not a copy of the tokens already read.
type CursorPool struct {
	stream       ReadStream
	window       []Token
	windowStart  int // stream position of window[0]
	sinceReclaim int
	cursors      []*Cursor

	cursorPoolDebugData
}

func NewCursorPool(stream ReadStream) *CursorPool {
	c, ok := stream.(*Cursor)
	if ok {
		return c.pool
	}
	return &CursorPool{stream: stream}
}

func NewCursorFromData(data []Token) *Cursor {
	// A pool with just the data and a cursor pointing at the start.
	pool := &CursorPool{
		stream: NewSliceReadStream(nil),
		window: data,
	}
	cursor := &Cursor{pool: pool}
	pool.cursors = append(pool.cursors, cursor)
	return cursor
}

// advanceWindow discards the tokens before the slowest cursor's position,
// since once the trailing branch of a fork has read past a token no other
// branch can still need it. Invoked every reclaimEvery advances rather than
// on every one, trading a little extra retained memory for not walking
// p.cursors on every token.
func (p *CursorPool) advanceWindow() {
	p.checkWindowSize()
	slowest := math.MaxInt
	for _, c := range p.cursors {
		if c.position < slowest {
			slowest = c.position
		}
	}
	if slowest == math.MaxInt {
		// No live cursors left at all: the whole window is garbage.
		p.windowStart += len(p.window)
		p.window = nil
		return
	}
	drop := slowest - p.windowStart
	if drop < 0 {
		panic("logic error")
	}
	if drop == 0 {
		return
	}
	kept := len(p.window) - drop

	p.windowStart += drop
	// A small window is cheap to compact in place. A large, sparsely used
	// one is reallocated smaller instead, so the old backing array (which
	// may be holding onto a lot of now-dead tokens) can actually be
	// collected rather than just have its tail unused.
	if cap(p.window) <= smallWindowCap || kept*2 > cap(p.window) {
		copy(p.window, p.window[drop:])
		p.window = p.window[:kept]
	} else {
		debug.Printf("reducing window capacity %d to %d", cap(p.window), kept)
		shrunk := make([]Token, kept)
		copy(shrunk, p.window[drop:])
		p.window = shrunk
	}
}

// We want this inlined
func (p *CursorPool) markAdvanced(n int) {
	p.sinceReclaim += n
	if p.sinceReclaim > reclaimEvery {
		p.sinceReclaim = 0
		p.advanceWindow()
	}
}

func (p *CursorPool) NewCursor() *Cursor {
	c := &Cursor{
		pool:     p,
		position: p.windowStart + len(p.window),
	}
	p.cursors = append(p.cursors, c)
	return c
}

func (p *CursorPool) CloneCursor(c *Cursor) *Cursor {
	if c == nil {
		return nil
	}
	clone := *c
	p.cursors = append(p.cursors, &clone)
	return &clone
}

func (p *CursorPool) DetachCursor(c *Cursor) {
	for i, c1 := range p.cursors {
		if c1 == c {
			p.markAdvanced(c.position - p.windowStart)
			newLen := len(p.cursors) - 1
			copy(p.cursors[i:], p.cursors[i+1:])
			p.cursors[newLen] = nil
			p.cursors = p.cursors[:newLen]
		}
	}
	c.pool = nil
}

func (p *CursorPool) AdvanceCursor(c *Cursor) Token {
	// TODO: optimize for when there is 1 cursor and empty window
	i := c.position - p.windowStart
	if i < len(p.window) {
		c.position++
		defer p.markAdvanced(1)
		return p.window[i]
	}
	if i > len(p.window) {
		panic("logic error")
	}
	tok := p.stream.Next()
	if tok != nil {
		c.position++
		p.window = append(p.window, tok)
	} else {
		p.DetachCursor(c)
	}
	return tok
}

type Cursor struct {
	pool     *CursorPool
	position int
}

var _ ReadStream = &Cursor{}

func (c *Cursor) Next() Token {
	if c.pool == nil {
		return nil
	}
	return c.pool.AdvanceCursor(c)
}

func (c *Cursor) Clone() *Cursor {
	if c.pool == nil {
		return c
	}
	return c.pool.CloneCursor(c)
}

func (c *Cursor) Detach() {
	if c.pool != nil {
		c.pool.DetachCursor(c)
	}
}

func CloneReadStream(stream ReadStream) (*Cursor, *Cursor) {
	c, ok := stream.(*Cursor)
	if !ok {
		c = NewCursorPool(stream).NewCursor()
	}
	return c, c.Clone()
}
