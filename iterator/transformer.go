package iterator

import "github.com/jqstream/jqstream/token"

// A TokenMapper rewrites one streamed value into a run of output tokens
// without ever materializing a full value.Value tree for it — the same
// token-at-a-time discipline fastpath.go uses for single-key projections,
// generalized to arbitrary per-value rewrites. Use TokenMapperStream to turn
// one into a token.StreamTransformer that can run over a whole token stream.
type TokenMapper interface {
	MapValue(iter Value, out token.WriteStream)
}

// TokenMapperStream adapts a TokenMapper into a token.StreamTransformer, so
// it can be spliced into a token-level pipeline stage.
func TokenMapperStream(mapper TokenMapper) token.StreamTransformer {
	return &tokenMapperStream{mapper: mapper}
}

type tokenMapperStream struct {
	mapper TokenMapper
}

func (s *tokenMapperStream) Transform(in <-chan token.Token, out token.WriteStream) {
	it := New(token.ChannelReadStream(in))
	for it.Advance() {
		s.mapper.MapValue(it.CurrentValue(), out)
	}
}
