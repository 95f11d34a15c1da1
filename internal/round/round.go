package round

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Round is a thematic phase of the interview.
type Round string

const (
	Aptitude     Round = "aptitude"
	Behavioral   Round = "behavioral"
	Technical    Round = "technical"
	SystemDesign Round = "system-design"
)

// All lists rounds in interview order.
var All = []Round{Aptitude, Behavioral, Technical, SystemDesign}

// Select maps a zero-based question index to its round. Every index maps to exactly one round.
func Select(index int) Round {
	switch {
	case index <= 2:
		return Aptitude
	case index <= 5:
		return Behavioral
	case index <= 8:
		return Technical
	default:
		return SystemDesign
	}
}

// Parse validates a round name.
func Parse(raw string) (Round, bool) {
	for _, r := range All {
		if string(r) == raw {
			return r, true
		}
	}
	return "", false
}

// Table holds the per-round time limit in seconds.
type Table map[Round]int

// DefaultTable is used when no overrides are configured.
func DefaultTable() Table {
	return Table{
		Aptitude:     90,
		Behavioral:   120,
		Technical:    120,
		SystemDesign: 300,
	}
}

// TimeLimit returns the limit in seconds for r, falling back to the default table.
func (t Table) TimeLimit(r Round) int {
	if limit, ok := t[r]; ok && limit > 0 {
		return limit
	}
	return DefaultTable()[r]
}

// ForIndex returns the round and its time limit for a question index.
func (t Table) ForIndex(index int) (Round, int) {
	r := Select(index)
	return r, t.TimeLimit(r)
}

// Merge returns a copy of t with the positive entries of other applied on top.
func (t Table) Merge(other Table) Table {
	merged := make(Table, len(All))
	for _, r := range All {
		merged[r] = t.TimeLimit(r)
	}
	for r, limit := range other {
		if limit > 0 {
			merged[r] = limit
		}
	}
	return merged
}

type fileFormat struct {
	Rounds map[string]int `yaml:"rounds" toml:"rounds"`
}

// LoadFile reads a YAML document of the form
//
//	rounds:
//	  aptitude: 90
//	  system-design: 300
//
// or, for a .toml file, a [rounds] table with the same keys.
// Unknown round names and non-positive limits are rejected.
func LoadFile(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rounds file %s: %w", path, err)
	}

	var doc fileFormat
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(raw, &doc)
	} else {
		err = yaml.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse rounds file %s: %w", path, err)
	}

	table := make(Table, len(doc.Rounds))
	for name, limit := range doc.Rounds {
		r, ok := Parse(name)
		if !ok {
			return nil, fmt.Errorf("rounds file %s: unknown round %q", path, name)
		}
		if limit <= 0 {
			return nil, fmt.Errorf("rounds file %s: round %q needs a positive limit, got %d", path, name, limit)
		}
		table[r] = limit
	}
	return table, nil
}
