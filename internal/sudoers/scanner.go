// Package sudoers extracts group-based privilege grants from the
// sudoers configuration.
//
// The one heuristic: a line whose first non-whitespace token begins
// with the '%' sigil names a group that can escalate. Commented-out
// grants ("# %admins ...") deliberately do not count: the sigil must
// be the first byte of the first token, so a leading '#' disqualifies
// the line. Everything else in sudoers syntax (user specs, Defaults,
// aliases, Cmnd lists) is ignored.
package sudoers

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scan reads the primary sudoers file and, if includeDir exists, every
// file in it (sorted by name, each processed independently). It returns
// the deduplicated, sorted set of granted group names. Scanning never
// mutates configuration.
func Scan(primary, includeDir string) ([]string, error) {
	groups := map[string]struct{}{}

	if err := scanFile(primary, groups); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(includeDir)
	if err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, n := range names {
			// A broken include file should not hide grants from the
			// others; each file stands alone.
			_ = scanFile(filepath.Join(includeDir, n), groups)
		}
	}

	out := make([]string, 0, len(groups))
	for g := range groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

func scanFile(path string, groups map[string]struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		if g, ok := grantedGroup(s.Text()); ok {
			groups[g] = struct{}{}
		}
	}
	return s.Err()
}

// grantedGroup returns the group name granted by line, if any.
func grantedGroup(line string) (string, bool) {
	trim := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trim, "%") {
		return "", false
	}
	name := trim[1:]
	if i := strings.IndexAny(name, " \t:="); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", false
	}
	return name, true
}
