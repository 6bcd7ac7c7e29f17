//go:build debug

package token

import "github.com/jqstream/jqstream/internal/debug"

type cursorPoolDebugData struct {
	maxWindowSize int
}

// checkWindowSize logs each time the cursor pool's retained window grows
// past its previous high-water mark, which is the signal that some cursor
// is pinning tokens far behind the current stream position (a slow or
// stuck consumer in a filter pipeline).
func (p *CursorPool) checkWindowSize() {
	current := len(p.window)
	if current > p.maxWindowSize {
		p.maxWindowSize = current
		debug.Printf("cursor pool window grew to %d tokens (stream pos %d)", current, p.windowStart)
	}
}
