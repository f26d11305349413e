package mining

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/pow"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/wire"
)

// PollInterval is the number of nonces tried between two checks of the
// search context.
const PollInterval = 1 << 16

// SearchState is the state of a Search.
type SearchState uint8

// The states a Search goes through. A search starts in SearchStateSearching
// and ends in exactly one of the other states.
const (
	SearchStateSearching SearchState = iota
	SearchStateFound
	SearchStateExhausted
	SearchStateCancelled
)

var searchStateStrings = map[SearchState]string{
	SearchStateSearching: "Searching",
	SearchStateFound:     "Found",
	SearchStateExhausted: "Exhausted",
	SearchStateCancelled: "Cancelled",
}

func (s SearchState) String() string {
	if str, ok := searchStateStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown SearchState (%d)", uint8(s))
}

// Search looks for a nonce that makes a block header hash at or below the
// target encoded by the header's bits. The nonce range is inclusive and may
// wrap around from 0xffffffff to 0, so every partition of the nonce space,
// including the whole of it, can be expressed.
//
// A Search is not reusable: Run may be called once. HashesTried is safe to
// call from other goroutines while Run is in progress.
type Search struct {
	header     wire.BlockHeader
	target     pow.Uint256
	startNonce uint32
	endNonce   uint32

	state       SearchState
	nonce       uint32
	hash        hashes.Hash
	nextNonce   uint32
	hashesTried uint64 // atomic
}

// NewSearch returns a search over startNonce..endNonce, both inclusive, for
// the given header. The header is copied; its own nonce is ignored.
func NewSearch(header *wire.BlockHeader, startNonce, endNonce uint32) *Search {
	return &Search{
		header:     *header,
		target:     pow.CompactToTarget(header.Bits),
		startNonce: startNonce,
		endNonce:   endNonce,
		state:      SearchStateSearching,
		nextNonce:  startNonce,
	}
}

// NewFullSearch returns a search over the whole nonce space, starting at the
// header's own nonce.
func NewFullSearch(header *wire.BlockHeader) *Search {
	return NewSearch(header, header.Nonce, header.Nonce-1)
}

// size returns the number of nonces in the range. It is at most 2^32.
func (s *Search) size() uint64 {
	return uint64(s.endNonce-s.startNonce) + 1
}

// Run scans the nonce range until a solution is found, the range is covered
// or ctx is done, and returns the resulting state. ctx is checked before the
// first nonce and then every PollInterval nonces.
func (s *Search) Run(ctx context.Context) SearchState {
	if s.state != SearchStateSearching {
		return s.state
	}

	serialized := s.header.Bytes()
	nonce := s.startNonce
	size := s.size()
	for i := uint64(0); i < size; i++ {
		if i%PollInterval == 0 && ctx.Err() != nil {
			s.nextNonce = nonce
			s.state = SearchStateCancelled
			log.Debugf("Search cancelled before nonce %d", nonce)
			return s.state
		}

		binary.LittleEndian.PutUint32(serialized[wire.NonceOffset:], nonce)
		hash := hashes.DoubleHash(serialized)
		atomic.AddUint64(&s.hashesTried, 1)
		if pow.CheckProofOfWork(&hash, &s.target) {
			s.nonce = nonce
			s.hash = hash
			s.nextNonce = nonce + 1
			s.state = SearchStateFound
			log.Debugf("Found nonce %d with hash %s", nonce, hash)
			return s.state
		}
		nonce++
	}

	s.nextNonce = nonce
	s.state = SearchStateExhausted
	log.Debugf("Nonce range %d..%d exhausted", s.startNonce, s.endNonce)
	return s.state
}

// State returns the current state of the search.
func (s *Search) State() SearchState {
	return s.state
}

// Solution returns the winning nonce and hash. ok is false unless the search
// is in SearchStateFound.
func (s *Search) Solution() (nonce uint32, hash hashes.Hash, ok bool) {
	if s.state != SearchStateFound {
		return 0, hashes.Hash{}, false
	}
	return s.nonce, s.hash, true
}

// NextNonce returns the first nonce that was not tried yet. A new search
// starting there continues where this one stopped.
func (s *Search) NextNonce() uint32 {
	return s.nextNonce
}

// HashesTried returns the number of nonces hashed so far.
func (s *Search) HashesTried() uint64 {
	return atomic.LoadUint64(&s.hashesTried)
}

// Target returns the target the search compares against.
func (s *Search) Target() pow.Uint256 {
	return s.target
}
