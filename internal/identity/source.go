package identity

import (
	"errors"
	"fmt"
	"os"

	"github.com/sfwani/lockdown/internal/hostfs"
)

const superuser = "root"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrGroupNotFound = errors.New("group not found")
)

// Source is the identity database as the lifecycle engine sees it.
// Queries never mutate; mutations go through the host files directly
// and take effect immediately (no rollback).
type Source interface {
	ListCandidates(minUID int) ([]Account, error)
	StatusOf(name string) Status
	GroupsOf(name string) ([]string, error)
	HomeDirOf(name string) (string, bool)

	Lock(name string) error
	Unlock(name string) error
	ExpireNow(name string) error
	ClearExpiry(name string) error
	Remove(name string) error
	RemoveHome(name string) error
	RemoveFromGroup(name, group string) error
	SetPasswordHash(name, hash string) error
}

// HostFiles implements Source on top of the passwd/shadow/group files.
// Every mutation is a fresh load, edit, atomic rewrite; two concurrent
// invocations of this tool are out of scope.
type HostFiles struct {
	PasswdPath string
	ShadowPath string
	GroupPath  string
}

func NewHostFiles(passwd, shadow, group string) *HostFiles {
	return &HostFiles{PasswdPath: passwd, ShadowPath: shadow, GroupPath: group}
}

func (h *HostFiles) ListCandidates(minUID int) ([]Account, error) {
	pw, err := LoadPasswd(h.PasswdPath)
	if err != nil {
		return nil, err
	}
	entries := pw.Candidates(minUID)
	out := make([]Account, 0, len(entries))
	for _, e := range entries {
		out = append(out, Account{Name: e.Name, UID: e.UID, GID: e.GID, Home: e.Home})
	}
	return out, nil
}

// StatusOf never fails: an unreadable shadow file or a vanished entry
// reads as active so a batch is not aborted by one flaky account.
func (h *HostFiles) StatusOf(name string) Status {
	sh, err := LoadShadow(h.ShadowPath)
	if err != nil {
		return StatusActive
	}
	se := sh.Find(name)
	if se == nil {
		return StatusActive
	}
	if se.Locked() {
		return StatusLocked
	}
	return StatusActive
}

func (h *HostFiles) GroupsOf(name string) ([]string, error) {
	gr, err := LoadGroup(h.GroupPath)
	if err != nil {
		return nil, err
	}
	groups := gr.GroupsWithMember(name)

	// The primary group lists nobody; resolve it via passwd GID.
	pw, err := LoadPasswd(h.PasswdPath)
	if err != nil {
		return nil, err
	}
	if pe := pw.Find(name); pe != nil {
		if g := gr.FindByGID(pe.GID); g != nil {
			found := false
			for _, gname := range groups {
				if gname == g.Name {
					found = true
					break
				}
			}
			if !found {
				groups = append(groups, g.Name)
			}
		}
	}
	return groups, nil
}

func (h *HostFiles) HomeDirOf(name string) (string, bool) {
	pw, err := LoadPasswd(h.PasswdPath)
	if err != nil {
		return "", false
	}
	pe := pw.Find(name)
	if pe == nil || pe.Home == "" {
		return "", false
	}
	return pe.Home, true
}

func (h *HostFiles) mutateShadow(name string, mutate func(*ShadowEntry)) error {
	sh, err := LoadShadow(h.ShadowPath)
	if err != nil {
		return err
	}
	se := sh.Find(name)
	if se == nil {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	mutate(se)
	return hostfs.WriteFileAtomic(h.ShadowPath, sh.Bytes(), 0600)
}

func (h *HostFiles) Lock(name string) error {
	return h.mutateShadow(name, func(se *ShadowEntry) { se.Lock() })
}

func (h *HostFiles) Unlock(name string) error {
	return h.mutateShadow(name, func(se *ShadowEntry) { se.Unlock() })
}

func (h *HostFiles) ExpireNow(name string) error {
	return h.mutateShadow(name, func(se *ShadowEntry) { se.ExpireNow() })
}

func (h *HostFiles) ClearExpiry(name string) error {
	return h.mutateShadow(name, func(se *ShadowEntry) { se.ClearExpiry() })
}

func (h *HostFiles) SetPasswordHash(name, hash string) error {
	return h.mutateShadow(name, func(se *ShadowEntry) { se.SetHash(hash) })
}

// Remove deletes the account from passwd and shadow, strips it from
// every group member list, drops a same-named primary group, and
// removes the home directory. From the identity source's perspective
// the account ceases to exist.
func (h *HostFiles) Remove(name string) error {
	pw, err := LoadPasswd(h.PasswdPath)
	if err != nil {
		return err
	}
	pe := pw.Find(name)
	if pe == nil {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	sh, err := LoadShadow(h.ShadowPath)
	if err != nil {
		return err
	}
	gr, err := LoadGroup(h.GroupPath)
	if err != nil {
		return err
	}

	home := pe.Home
	pw.Delete(name)
	sh.Delete(name)
	gr.RemoveMemberEverywhere(name)
	_ = gr.Delete(name)

	if err := hostfs.WriteFileAtomic(h.PasswdPath, pw.Bytes(), 0644); err != nil {
		return err
	}
	if err := hostfs.WriteFileAtomic(h.ShadowPath, sh.Bytes(), 0600); err != nil {
		return err
	}
	if err := hostfs.WriteFileAtomic(h.GroupPath, gr.Bytes(), 0644); err != nil {
		return err
	}
	if home != "" {
		_ = os.RemoveAll(home)
	}
	return nil
}

func (h *HostFiles) RemoveHome(name string) error {
	home, ok := h.HomeDirOf(name)
	if !ok {
		return nil
	}
	return os.RemoveAll(home)
}

func (h *HostFiles) RemoveFromGroup(name, group string) error {
	gr, err := LoadGroup(h.GroupPath)
	if err != nil {
		return err
	}
	if gr.Find(group) == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, group)
	}
	if !gr.RemoveMember(group, name) {
		return nil
	}
	return hostfs.WriteFileAtomic(h.GroupPath, gr.Bytes(), 0644)
}
