package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/brianvoe/gofakeit/v7"
)

// namesStream keeps the name generator off the numeric draw sequence
const namesStream = 0x6e616d6573

// NameProvider produces salesperson labels.
// Names must be a pure function of (seed, n); labels carry no statistical weight.
type NameProvider interface {
	Names(seed uint64, n int) []string
}

// FakerNames draws realistic person names from gofakeit
type FakerNames struct{}

// Names returns n fake names from a faker seeded with seed. The source is
// built explicitly since gofakeit.New(0) seeds from crypto/rand.
func (FakerNames) Names(seed uint64, n int) []string {
	faker := gofakeit.NewFaker(rand.NewPCG(seed, namesStream), false)
	names := make([]string, n)
	for i := range names {
		names[i] = faker.Name()
	}
	return names
}

// SequenceNames labels salespeople "Salesperson 0001", "Salesperson 0002", ...
type SequenceNames struct {
	Prefix string
}

// Names ignores the seed and numbers labels from 1
func (s SequenceNames) Names(_ uint64, n int) []string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "Salesperson"
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s %04d", prefix, i+1)
	}
	return names
}

// NameProviderFor maps a configuration value to a provider
func NameProviderFor(kind string) (NameProvider, error) {
	switch kind {
	case "", "faker":
		return FakerNames{}, nil
	case "sequence":
		return SequenceNames{}, nil
	default:
		return nil, fmt.Errorf("unknown name provider %q", kind)
	}
}
