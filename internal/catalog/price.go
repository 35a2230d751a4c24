package catalog

import (
	"math/rand/v2"
	"sync"
)

// Prices are drawn uniformly from [MinPrice, MaxPrice).
const (
	MinPrice int64 = 10
	MaxPrice int64 = 60
)

// PriceSource assigns a price to a newly loaded catalog item.
type PriceSource interface {
	Price() int64
}

// PriceFunc adapts a function to PriceSource.
type PriceFunc func() int64

// Price implements PriceSource.
func (f PriceFunc) Price() int64 { return f() }

// FixedPrice returns a source that always yields price.
func FixedPrice(price int64) PriceSource {
	return PriceFunc(func() int64 { return price })
}

// RandomPrices draws prices from math/rand/v2.
type RandomPrices struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPrices returns a source backed by the global generator.
func NewRandomPrices() *RandomPrices {
	return &RandomPrices{}
}

// NewSeededPrices returns a reproducible source.
func NewSeededPrices(seed uint64) *RandomPrices {
	return &RandomPrices{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Price implements PriceSource.
func (p *RandomPrices) Price() int64 {
	span := MaxPrice - MinPrice
	if p.rng == nil {
		return MinPrice + rand.Int64N(span)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return MinPrice + p.rng.Int64N(span)
}
