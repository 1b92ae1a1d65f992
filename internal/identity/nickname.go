package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// maxNicknameAttempts bounds the search for a candidate that fits the length limit.
const maxNicknameAttempts = 64

// digestStream yields uint64s from a digest, extending it with a sha256
// chain once the current block is consumed.
type digestStream struct {
	block []byte
	off   int
}

func newDigestStream(digest []byte) *digestStream {
	block := make([]byte, len(digest))
	copy(block, digest)
	return &digestStream{block: block}
}

func (s *digestStream) next() uint64 {
	if s.off+8 > len(s.block) {
		sum := sha256.Sum256(s.block)
		s.block = sum[:]
		s.off = 0
	}
	v := binary.BigEndian.Uint64(s.block[s.off : s.off+8])
	s.off += 8
	return v
}

// nickname builds an AdjectiveNounNumber phrase no longer than maxLen.
func nickname(digest []byte, maxLen, maxNumber int) string {
	stream := newDigestStream(digest)
	var last string
	for i := 0; i < maxNicknameAttempts; i++ {
		adj := adjectives[stream.next()%uint64(len(adjectives))]
		noun := nouns[stream.next()%uint64(len(nouns))]
		num := stream.next() % uint64(maxNumber+1)

		last = fmt.Sprintf("%s%s%d", adj, noun, num)
		if len(last) <= maxLen {
			return last
		}
	}
	return last[:maxLen]
}
