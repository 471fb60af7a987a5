// Package selection turns operator input into a keep/act-on partition
// over a candidate list. It is shared by the disable/delete flow, the
// re-enable flow, and the privilege revocation flow.
package selection

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseIndices parses free-form keep input: whitespace-separated,
// 1-based indices into a list of n candidates. Invalid tokens (not a
// number, out of range) produce a warning each and are otherwise
// ignored; they never abort the run. Empty input yields an empty set.
func ParseIndices(input string, n int) (map[int]struct{}, []string) {
	keep := map[int]struct{}{}
	var warnings []string
	for _, tok := range strings.Fields(input) {
		idx, err := strconv.Atoi(tok)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring %q: not a number", tok))
			continue
		}
		if idx < 1 || idx > n {
			warnings = append(warnings, fmt.Sprintf("ignoring %q: out of range 1-%d", tok, n))
			continue
		}
		keep[idx] = struct{}{}
	}
	return keep, warnings
}

// Partition splits candidates into keep and act-on name sets from the
// 1-based keep indices. The split is by name so it stays correct even
// if the caller re-lists candidates in a different order afterwards.
func Partition(candidates []string, keepIdx map[int]struct{}) (keep map[string]struct{}, actOn []string) {
	keep = map[string]struct{}{}
	for i, name := range candidates {
		if _, ok := keepIdx[i+1]; ok {
			keep[name] = struct{}{}
			continue
		}
		actOn = append(actOn, name)
	}
	return keep, actOn
}

// Prompter reads operator answers line by line. A single scanner is
// held across prompts so buffered input is not lost between questions.
type Prompter struct {
	s *bufio.Scanner
	w io.Writer
}

func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{s: bufio.NewScanner(r), w: w}
}

// Out exposes the prompt writer so callers can interleave listings
// with the questions about them.
func (p *Prompter) Out() io.Writer { return p.w }

// Confirm asks a yes/no question. Only "y" or "yes" (any case)
// proceeds; everything else, including EOF, declines. A declined
// confirmation is how the operator aborts with zero mutation.
func (p *Prompter) Confirm(prompt string) bool {
	fmt.Fprintf(p.w, "%s [y/N]: ", prompt)
	if !p.s.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(p.s.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

// ReadLine reads one trimmed line, for the free-form prompts (keep
// indices, UID threshold). EOF reads as empty input.
func (p *Prompter) ReadLine(prompt string) string {
	fmt.Fprintf(p.w, "%s: ", prompt)
	if !p.s.Scan() {
		return ""
	}
	return strings.TrimSpace(p.s.Text())
}
