// Package program holds operator programs in the hardware's native 0-99
// ranges and converts them into engine parameters.
package program

import (
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/dxfm-go/internal/event"
	"github.com/cbegin/dxfm-go/internal/fm"
)

const (
	maxLevel    = 99
	maxCoarse   = 31
	maxDetune   = 14
	maxFeedback = 7
	detuneZero  = 7
	dbPerStep   = -0.75
)

// Operator is one operator of a program.
type Operator struct {
	Level    int    `yaml:"level"`
	Coarse   int    `yaml:"coarse"`
	Fine     int    `yaml:"fine"`
	Detune   int    `yaml:"detune"`
	Feedback int    `yaml:"feedback,omitempty"`
	Rates    [4]int `yaml:"rates,flow"`
	Levels   [4]int `yaml:"levels,flow"`
}

// DefaultOperator is a full-level sine with instant envelope.
func DefaultOperator() Operator {
	return Operator{
		Level:  99,
		Coarse: 1,
		Detune: detuneZero,
		Rates:  [4]int{99, 99, 99, 99},
		Levels: [4]int{99, 99, 99, 0},
	}
}

// UnmarshalYAML fills fields missing from the document with DefaultOperator values.
func (o *Operator) UnmarshalYAML(value *yaml.Node) error {
	type plain Operator
	p := plain(DefaultOperator())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*o = Operator(p)
	return nil
}

// Amplitude maps output level to linear gain at 0.75 dB per step below 99.
func (o Operator) Amplitude() float64 {
	switch {
	case o.Level <= 0:
		return 0
	case o.Level >= maxLevel:
		return 1
	}
	return math.Pow(10, float64(maxLevel-o.Level)*dbPerStep/20)
}

// Ratio is the frequency multiple; coarse 0 means one octave down.
func (o Operator) Ratio() float64 {
	coarse := float64(o.Coarse)
	if o.Coarse == 0 {
		coarse = 0.5
	}
	return coarse * (1 + float64(o.Fine)/100)
}

func (o Operator) DetuneCents() float64 {
	return float64(o.Detune - detuneZero)
}

func (o Operator) FeedbackAmount() float64 {
	return float64(o.Feedback) / maxFeedback
}

func (o Operator) EnvelopeRates() [4]float64 {
	var r [4]float64
	for i, v := range o.Rates {
		r[i] = float64(v)
	}
	return r
}

func (o Operator) EnvelopeLevels() [4]float64 {
	var l [4]float64
	for i, v := range o.Levels {
		l[i] = float64(v) / maxLevel
	}
	return l
}

func (o Operator) validate() error {
	if err := inRange("level", o.Level, 0, maxLevel); err != nil {
		return err
	}
	if err := inRange("coarse", o.Coarse, 0, maxCoarse); err != nil {
		return err
	}
	if err := inRange("fine", o.Fine, 0, maxLevel); err != nil {
		return err
	}
	if err := inRange("detune", o.Detune, 0, maxDetune); err != nil {
		return err
	}
	if err := inRange("feedback", o.Feedback, 0, maxFeedback); err != nil {
		return err
	}
	for i := range o.Rates {
		if err := inRange(fmt.Sprintf("rate %d", i+1), o.Rates[i], 0, maxLevel); err != nil {
			return err
		}
		if err := inRange(fmt.Sprintf("level %d", i+1), o.Levels[i], 0, maxLevel); err != nil {
			return err
		}
	}
	return nil
}

// Program is a complete voice patch. Operators[0] is OP1.
type Program struct {
	Name      string     `yaml:"name"`
	Category  string     `yaml:"category,omitempty"`
	Algorithm int        `yaml:"algorithm"` // 1-32
	Feedback  int        `yaml:"feedback"`
	Operators []Operator `yaml:"operators"`
}

func (p Program) Validate() error {
	if p.Name == "" {
		return errors.New("program name is empty")
	}
	if err := inRange("algorithm", p.Algorithm, 1, fm.NumAlgorithms); err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if err := inRange("feedback", p.Feedback, 0, maxFeedback); err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if len(p.Operators) != fm.NumOperators {
		return fmt.Errorf("%s: has %d operators, want %d", p.Name, len(p.Operators), fm.NumOperators)
	}
	for i, op := range p.Operators {
		if err := op.validate(); err != nil {
			return fmt.Errorf("%s: operator %d: %w", p.Name, i+1, err)
		}
	}
	return nil
}

// feedback returns the amount for operator slot i. The program-wide value
// lands on the algorithm's feedback slot unless that operator sets its own.
func (p Program) feedback(i int) float64 {
	op := p.Operators[i]
	if op.Feedback > 0 {
		return op.FeedbackAmount()
	}
	if i == fm.FeedbackSlot(p.Algorithm-1) {
		return float64(p.Feedback) / maxFeedback
	}
	return 0
}

// Target receives a program. fm.Engine satisfies it.
type Target interface {
	Enqueue(ev event.Event) bool
	SetAlgorithm(alg int)
	SetOperatorLevel(op int, level float64)
	SetOperatorRatio(op int, ratio float64)
	SetOperatorDetune(op int, cents float64)
	SetOperatorFeedback(op int, fb float64)
	SetOperatorEnvelopeRates(op int, r1, r2, r3, r4 float64)
	SetOperatorEnvelopeLevels(op int, l1, l2, l3, l4 float64)
}

// Apply silences sounding notes and loads p into t.
func Apply(t Target, p Program) error {
	if err := p.Validate(); err != nil {
		return err
	}
	t.Enqueue(event.AllNotesOff())
	t.SetAlgorithm(p.Algorithm - 1)
	for i, op := range p.Operators {
		t.SetOperatorLevel(i, op.Amplitude())
		t.SetOperatorRatio(i, op.Ratio())
		t.SetOperatorDetune(i, op.DetuneCents())
		t.SetOperatorFeedback(i, p.feedback(i))
		r := op.EnvelopeRates()
		t.SetOperatorEnvelopeRates(i, r[0], r[1], r[2], r[3])
		l := op.EnvelopeLevels()
		t.SetOperatorEnvelopeLevels(i, l[0], l[1], l[2], l[3])
	}
	return nil
}

func inRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d out of range %d..%d", name, v, lo, hi)
	}
	return nil
}
