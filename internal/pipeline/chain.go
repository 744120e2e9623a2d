package pipeline

import (
	"github.com/rs/zerolog"

	"ddtft/internal/domain"
)

// agreementBoost is the share of the remaining confidence gained each time a
// later strategy finds the committed value again.
const agreementBoost = 0.2

// Strategy is one way of finding a field value. Find returns the value, its
// confidence and whether anything was found.
//
// A strategy with a Rule carries a validation check. It may replace a value
// committed by an earlier strategy that had no such check, but only when the
// committed value fails Check and its own value passes.
type Strategy[T any] struct {
	Name  string
	Rule  string
	Check func(T) bool
	Find  func() (T, float64, bool)
}

// Fixed adapts a finder with a constant confidence.
func Fixed[T any](name string, confidence float64, find func() (T, bool)) Strategy[T] {
	return Strategy[T]{
		Name: name,
		Find: func() (T, float64, bool) {
			v, ok := find()
			return v, confidence, ok
		},
	}
}

// Chain runs an ordered list of strategies for one field.
type Chain[T any] struct {
	Field      string
	Key        func(T) string
	Strategies []Strategy[T]
}

// Outcome is the committed value of a chain run.
type Outcome[T any] struct {
	Value      T
	Found      bool
	Provenance domain.FieldProvenance
	Overrides  []domain.FieldOverride
}

// Run commits the first value found. Later strategies that find the same
// value raise its confidence; a later rule-carrying strategy may override it
// as described on Strategy. Every override is logged and returned.
func (c Chain[T]) Run(log zerolog.Logger) Outcome[T] {
	var out Outcome[T]
	var committedRule string

	for _, s := range c.Strategies {
		v, conf, ok := s.Find()
		if !ok {
			continue
		}
		if !out.Found {
			out.Value, out.Found = v, true
			out.Provenance = domain.FieldProvenance{Strategy: s.Name, Confidence: conf}
			committedRule = s.Rule
			continue
		}

		if c.Key(v) == c.Key(out.Value) {
			out.Provenance.Confidence = boost(out.Provenance.Confidence)
			out.Provenance.AgreedBy = append(out.Provenance.AgreedBy, s.Name)
			continue
		}

		if s.Rule == "" || committedRule != "" || s.Check == nil || s.Check(out.Value) || !s.Check(v) {
			log.Debug().
				Str("field", c.Field).
				Str("strategy", s.Name).
				Str("value", c.Key(v)).
				Str("committed", c.Key(out.Value)).
				Msg("pipeline.Chain: later candidate ignored")
			continue
		}

		ov := domain.FieldOverride{
			Field:    c.Field,
			OldValue: c.Key(out.Value),
			NewValue: c.Key(v),
			Strategy: s.Name,
			Rule:     s.Rule,
		}
		log.Info().
			Str("field", ov.Field).
			Str("old", ov.OldValue).
			Str("new", ov.NewValue).
			Str("strategy", ov.Strategy).
			Str("rule", ov.Rule).
			Msg("pipeline.Chain: field overridden")

		out.Overrides = append(out.Overrides, ov)
		out.Value = v
		out.Provenance = domain.FieldProvenance{Strategy: s.Name, Confidence: conf}
		committedRule = s.Rule
	}
	return out
}

func boost(conf float64) float64 {
	if conf >= 1.0 {
		return 1.0
	}
	boosted := conf + (1.0-conf)*agreementBoost
	if boosted > 1.0 {
		boosted = 1.0
	}
	return boosted
}

func stringKey(s string) string { return s }
