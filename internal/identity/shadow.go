package identity

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/sfwani/lockdown/internal/hostfs"
)

type ShadowFile struct {
	pf parsedFile[ShadowEntry]
}

func LoadShadow(path string) (*ShadowFile, error) {
	b, err := hostfs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines, err := readLines(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	var pf parsedFile[ShadowEntry]
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, "#") {
			pf.lines = append(pf.lines, rawLine[ShadowEntry]{raw: line})
			continue
		}

		parts := parseColonLine(line)
		if len(parts) < 2 {
			pf.lines = append(pf.lines, rawLine[ShadowEntry]{raw: line})
			continue
		}

		for len(parts) < 9 {
			parts = append(parts, "")
		}

		e := ShadowEntry{
			Name:       parts[0],
			Hash:       parts[1],
			LastChange: parts[2],
			Min:        parts[3],
			Max:        parts[4],
			Warn:       parts[5],
			Inactive:   parts[6],
			Expire:     parts[7],
			Reserved:   parts[8],
		}
		pf.lines = append(pf.lines, rawLine[ShadowEntry]{entry: &e})
	}

	return &ShadowFile{pf: pf}, nil
}

func (f *ShadowFile) Find(name string) *ShadowEntry {
	for _, e := range f.pf.entries() {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (f *ShadowFile) Delete(name string) bool {
	changed := false
	for i := range f.pf.lines {
		e := f.pf.lines[i].entry
		if e != nil && e.Name == name {
			f.pf.lines[i].entry = nil
			f.pf.lines[i].raw = ""
			changed = true
		}
	}
	if !changed {
		return false
	}
	var nl []rawLine[ShadowEntry]
	for _, ln := range f.pf.lines {
		if ln.entry == nil && ln.raw == "" {
			continue
		}
		nl = append(nl, ln)
	}
	f.pf.lines = nl
	return true
}

// Locked reports whether the hash carries the usermod-style "!" lock
// prefix, the only lock form this tool places or reverses. A "*" hash
// means the account never had a password; that is not a lock and the
// account still counts as active.
func (e *ShadowEntry) Locked() bool {
	return strings.HasPrefix(e.Hash, "!")
}

// Lock prefixes the hash with "!" exactly once.
func (e *ShadowEntry) Lock() {
	if !e.Locked() {
		e.Hash = "!" + e.Hash
	}
}

// Unlock strips every leading "!" so a double-locked hash still comes
// back usable.
func (e *ShadowEntry) Unlock() {
	e.Hash = strings.TrimLeft(e.Hash, "!")
}

// ExpireNow sets the account-expiry field to day 1 (1970-01-02), which
// every login path treats as long past.
func (e *ShadowEntry) ExpireNow() {
	e.Expire = "1"
}

func (e *ShadowEntry) ClearExpiry() {
	e.Expire = ""
}

// SetHash replaces the credential hash and stamps the last-change field
// with today, the way chpasswd does.
func (e *ShadowEntry) SetHash(hash string) {
	e.Hash = hash
	e.LastChange = fmt.Sprintf("%d", time.Now().Unix()/86400)
}

func (f *ShadowFile) Bytes() []byte {
	var buf strings.Builder
	for _, ln := range f.pf.lines {
		if ln.entry != nil {
			e := ln.entry
			buf.WriteString(fmt.Sprintf("%s:%s:%s:%s:%s:%s:%s:%s:%s\n",
				e.Name, e.Hash, e.LastChange, e.Min, e.Max, e.Warn, e.Inactive, e.Expire, e.Reserved))
			continue
		}
		buf.WriteString(ln.raw)
		buf.WriteString("\n")
	}
	return []byte(buf.String())
}
