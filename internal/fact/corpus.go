package fact

import (
	"errors"
	"math/rand/v2"
	"strings"
)

var ErrEmptyFallback = errors.New("fallback corpus is empty")

// Corpus is the fixed local list served when the network is exhausted.
type Corpus struct {
	facts []string
	intn  func(int) int
}

func NewCorpus(facts []string) (*Corpus, error) {
	var kept []string
	for _, f := range facts {
		if strings.TrimSpace(f) != "" {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmptyFallback
	}
	return &Corpus{facts: kept, intn: rand.IntN}, nil
}

// Pick returns a uniformly random entry.
func (c *Corpus) Pick() string {
	return c.facts[c.intn(len(c.facts))]
}

func (c *Corpus) Len() int {
	return len(c.facts)
}
