/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"sync"
)

const (
	decoyCount = ChoiceCount - 1
	maxJitter  = 3
	maxSpread  = 25
)

// Shifts never include zero, so the shift step alone can't reproduce the
// true pair.
var shifts = [...]int{-15, -12, -10, -8, -6, -4, -2, 2, 4, 6, 8, 10, 12, 15}

// Generator builds the decoy answers for a round. It is safe for
// concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator drawing from rng, or from the runtime's
// random source when rng is nil.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Generator{rng: rng}
}

// Generate returns the true pair and three decoys in random order, along
// with the position of the true pair.
func (g *Generator) Generate(truth TemperaturePair) ([ChoiceCount]Choice, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var choices [ChoiceCount]Choice

	choices[0] = Choice{Pair: truth, Correct: true}

	for i := 1; i <= decoyCount; i++ {
		shift := shifts[g.rng.IntN(len(shifts))]
		highJitter := g.rng.IntN(2*maxJitter+1) - maxJitter
		lowJitter := g.rng.IntN(2*maxJitter+1) - maxJitter

		choices[i] = Choice{Pair: decoy(truth, shift, highJitter, lowJitter)}
	}

	for i := len(choices) - 1; i > 0; i-- {
		j := g.rng.IntN(i + 1)
		choices[i], choices[j] = choices[j], choices[i]
	}

	correct := 0
	for i, c := range choices {
		if c.Correct {
			correct = i
			break
		}
	}

	return choices, correct
}

// decoy moves the true pair by shift, then nudges each end independently so
// decoys don't all share the true spread.
func decoy(truth TemperaturePair, shift, highJitter, lowJitter int) TemperaturePair {
	p := TemperaturePair{
		High: truth.High + shift + highJitter,
		Low:  truth.Low + shift + lowJitter,
	}

	if p.Low > p.High {
		p.High, p.Low = p.Low, p.High
	}

	return capSpread(p)
}

// capSpread narrows p to maxSpread, taking the odd degree off the low end.
func capSpread(p TemperaturePair) TemperaturePair {
	excess := p.Spread() - maxSpread
	if excess <= 0 {
		return p
	}

	p.High -= excess / 2
	p.Low += excess - excess/2

	return p
}
