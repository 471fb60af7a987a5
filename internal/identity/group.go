package identity

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sfwani/lockdown/internal/hostfs"
)

type GroupFile struct {
	pf parsedFile[GroupEntry]
}

func LoadGroup(path string) (*GroupFile, error) {
	b, err := hostfs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines, err := readLines(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	var pf parsedFile[GroupEntry]
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, "#") {
			pf.lines = append(pf.lines, rawLine[GroupEntry]{raw: line})
			continue
		}
		parts := parseColonLine(line)
		if len(parts) < 4 {
			pf.lines = append(pf.lines, rawLine[GroupEntry]{raw: line})
			continue
		}
		gid, err := atoi(parts[2], "group.gid")
		if err != nil {
			return nil, err
		}
		members := []string{}
		if parts[3] != "" {
			members = strings.Split(parts[3], ",")
		}
		e := GroupEntry{Name: parts[0], Passwd: parts[1], GID: gid, Members: members}
		pf.lines = append(pf.lines, rawLine[GroupEntry]{entry: &e})
	}
	return &GroupFile{pf: pf}, nil
}

func (f *GroupFile) Find(name string) *GroupEntry {
	for _, e := range f.pf.entries() {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (f *GroupFile) FindByGID(gid int) *GroupEntry {
	for _, e := range f.pf.entries() {
		if e.GID == gid {
			return e
		}
	}
	return nil
}

// GroupsWithMember returns the names of every group whose member list
// contains user, in file order. The primary group is not included
// unless the member list names the user explicitly.
func (f *GroupFile) GroupsWithMember(user string) []string {
	var out []string
	for _, g := range f.pf.entries() {
		for _, m := range g.Members {
			if m == user {
				out = append(out, g.Name)
				break
			}
		}
	}
	return out
}

// RemoveMember drops user from one group's member list. Returns false
// when the group is missing or the user was not a member.
func (f *GroupFile) RemoveMember(group, user string) bool {
	g := f.Find(group)
	if g == nil {
		return false
	}
	var out []string
	removed := false
	for _, m := range g.Members {
		if m == user {
			removed = true
			continue
		}
		out = append(out, m)
	}
	g.Members = out
	return removed
}

func (f *GroupFile) RemoveMemberEverywhere(user string) {
	for _, g := range f.pf.entries() {
		var out []string
		for _, m := range g.Members {
			if m != user {
				out = append(out, m)
			}
		}
		g.Members = out
	}
}

func (f *GroupFile) Delete(name string) bool {
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
	var nl []rawLine[GroupEntry]
	for _, ln := range f.pf.lines {
		if ln.entry == nil && ln.raw == "" {
			continue
		}
		nl = append(nl, ln)
	}
	f.pf.lines = nl
	return true
}

func (f *GroupFile) Bytes() []byte {
	var buf strings.Builder
	for _, ln := range f.pf.lines {
		if ln.entry != nil {
			e := ln.entry
			members := strings.Join(e.Members, ",")
			buf.WriteString(fmt.Sprintf("%s:%s:%d:%s\n", e.Name, e.Passwd, e.GID, members))
		} else {
			buf.WriteString(ln.raw)
			buf.WriteString("\n")
		}
	}
	return []byte(buf.String())
}
