package program

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed factory.yml
var factoryYAML []byte

// Bank is an ordered list of programs, as stored in a YAML bank file.
type Bank struct {
	Programs []Program `yaml:"programs"`
}

func ParseBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bank: %w", err)
	}
	if len(b.Programs) == 0 {
		return nil, errors.New("bank has no programs")
	}
	for i, p := range b.Programs {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("program %d: %w", i+1, err)
		}
	}
	return &b, nil
}

func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	b, err := ParseBank(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

var factory = sync.OnceValue(func() *Bank {
	b, err := ParseBank(factoryYAML)
	if err != nil {
		panic(fmt.Sprintf("factory bank: %v", err))
	}
	return b
})

// Factory returns a copy of the built-in bank.
func Factory() *Bank {
	return factory().Clone()
}

func (b *Bank) Clone() *Bank {
	c := &Bank{Programs: slices.Clone(b.Programs)}
	for i := range c.Programs {
		c.Programs[i].Operators = slices.Clone(c.Programs[i].Operators)
	}
	return c
}

func (b *Bank) Len() int { return len(b.Programs) }

// Find looks a program up by name, ignoring case.
func (b *Bank) Find(name string) (Program, int, bool) {
	for i, p := range b.Programs {
		if strings.EqualFold(p.Name, name) {
			return p, i, true
		}
	}
	return Program{}, -1, false
}

func (b *Bank) Names() []string {
	names := make([]string, len(b.Programs))
	for i, p := range b.Programs {
		names[i] = p.Name
	}
	return names
}
