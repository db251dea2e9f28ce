package sexp

import (
	"fmt"
	"strconv"
)

// Navigation helpers over parsed trees.

// FindNode searches s for a child list whose leading symbol is key.
// Example: FindNode(node, "start") finds (start 100 50).
func FindNode(s Sexp, key string) (Sexp, bool) {
	list, ok := s.(*List)
	if !ok {
		return nil, false
	}
	for _, item := range list.Items {
		if sub, ok := item.(*List); ok && sub.Name() == key {
			return sub, true
		}
		if sym, ok := item.(Symbol); ok && string(sym) == key {
			return item, true
		}
	}
	return nil, false
}

// FindAllNodes finds every child list whose leading symbol is key.
func FindAllNodes(s Sexp, key string) []Sexp {
	list, ok := s.(*List)
	if !ok {
		return nil
	}
	var results []Sexp
	for _, item := range list.Items {
		if sub, ok := item.(*List); ok && sub.Name() == key {
			results = append(results, sub)
		}
	}
	return results
}

// GetString extracts the atom at index as text. Index 0 is the list's
// key symbol, 1 the first value.
func GetString(s Sexp, index int) (string, error) {
	list, ok := s.(*List)
	if !ok {
		return "", fmt.Errorf("expected list, got leaf")
	}
	item := list.Get(index)
	if item == nil {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, list.Len())
	}
	text, ok := Text(item)
	if !ok {
		return "", fmt.Errorf("expected atom at index %d, got %T", index, item)
	}
	return text, nil
}

// GetFloat extracts the atom at index as a float64.
func GetFloat(s Sexp, index int) (float64, error) {
	text, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("expected number at index %d: %w", index, err)
	}
	return v, nil
}

// GetInt extracts the atom at index as an int.
func GetInt(s Sexp, index int) (int, error) {
	text, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("expected integer at index %d: %w", index, err)
	}
	return v, nil
}

// Num formats a float the way KiCad writes coordinates: up to 6
// decimals with trailing zeros trimmed.
func Num(v float64) Symbol {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return Symbol(s[:i])
}
