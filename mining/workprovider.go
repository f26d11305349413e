package mining

import (
	"github.com/lucasbalieiro/cpuminer-stratum-v2/wire"
)

// WorkProvider supplies block headers to mine on.
type WorkProvider interface {
	GetWork() (*wire.BlockHeader, error)
}

// StaticWorkProvider always hands out the same header.
type StaticWorkProvider struct {
	header wire.BlockHeader
}

// NewStaticWorkProvider returns a StaticWorkProvider serving a copy of
// header.
func NewStaticWorkProvider(header *wire.BlockHeader) *StaticWorkProvider {
	return &StaticWorkProvider{header: *header}
}

// GetWork returns a fresh copy of the header, so callers may modify it.
func (p *StaticWorkProvider) GetWork() (*wire.BlockHeader, error) {
	header := p.header
	return &header, nil
}
