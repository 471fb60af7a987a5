// Package engine drives account lifecycle transitions: active →
// disabled → active, and active/disabled → deleted.
//
// Two sources of truth exist for "disabled": the live shadow file and
// the ledger. They are updated eagerly and independently, so a prior
// partial failure can leave them disagreeing. The engine therefore
// reconciles each account against the ledger, unconditionally, before
// anything else touches it; drift is never patched up ad hoc inside
// the transition logic.
//
// Reconciliation only ever removes stale ledger entries. An account
// locked by someone else between runs stays invisible to the ledger
// until this tool disables it itself; the ledger records what this
// tool did, not what the host looks like.
package engine

import (
	"fmt"
	"sort"

	"github.com/sfwani/lockdown/internal/identity"
	"github.com/sfwani/lockdown/internal/ledger"
	"github.com/sfwani/lockdown/internal/report"
)

// Action is the batch-wide transition choice. One invocation applies
// one action uniformly to every non-kept candidate; mixed per-account
// actions are not supported.
type Action int

const (
	ActionDisable Action = iota
	ActionDelete
)

func (a Action) String() string {
	if a == ActionDelete {
		return "delete"
	}
	return "disable"
}

// Snapshotter is the opaque backup-before-mutation capability.
type Snapshotter interface {
	Take(label string, paths []string) (string, error)
}

// Summary counts what a batch actually did. Per-account failures are
// reported, counted, and never escalate to a batch error.
type Summary struct {
	Disabled  int
	Deleted   int
	Reenabled int
	Kept      int
	Skipped   int
	Failed    int
}

type Engine struct {
	src       identity.Source
	ledger    *ledger.Store
	deletions *DeletionLog
	rep       *report.Reporter

	snap      Snapshotter
	snapPaths []string
}

func New(src identity.Source, led *ledger.Store, del *DeletionLog, rep *report.Reporter) *Engine {
	return &Engine{src: src, ledger: led, deletions: del, rep: rep}
}

// WithSnapshot makes every destructive batch archive basePaths (the
// identity files) plus the act-on accounts' home directories before
// the first mutation. Without it the engine runs snapshot-free, which
// is what the tests do.
func (e *Engine) WithSnapshot(snap Snapshotter, basePaths []string) *Engine {
	e.snap = snap
	e.snapPaths = basePaths
	return e
}

// Reconcile heals ledger drift for a single account and returns its
// live status. A ledger entry must not outlive the live-locked status
// it records: if the live source says active, the entry is stale and
// is purged here, before the caller evaluates keep/act-on membership.
func (e *Engine) Reconcile(name string) (identity.Status, error) {
	st := e.src.StatusOf(name)
	if st == identity.StatusLocked {
		return st, nil
	}
	ok, err := e.ledger.Contains(name)
	if err != nil {
		return st, err
	}
	if ok {
		if err := e.ledger.Remove(name); err != nil {
			return st, err
		}
		e.rep.Warn("ledger drift: %s is live-active, stale entry purged", name)
	}
	return st, nil
}

// Run applies the batch action to every candidate not in keep.
// Candidates are processed strictly one at a time: status read,
// reconcile, then transition. Nothing is rolled back; a failed account
// is reported and the batch moves to the next one. The only batch-wide
// failure is the pre-mutation snapshot, which aborts before anything
// is touched.
func (e *Engine) Run(action Action, candidates []identity.Account, keep map[string]struct{}) (Summary, error) {
	var sum Summary
	if e.snap != nil {
		paths := append([]string{}, e.snapPaths...)
		for _, acct := range candidates {
			if _, kept := keep[acct.Name]; !kept && acct.Home != "" {
				paths = append(paths, acct.Home)
			}
		}
		archive, err := e.snap.Take(action.String(), paths)
		if err != nil {
			return sum, fmt.Errorf("snapshot before %s batch: %w", action, err)
		}
		e.rep.Info("snapshot written to %s", archive)
	}
	for _, acct := range candidates {
		st, err := e.Reconcile(acct.Name)
		if err != nil {
			e.rep.Error("reconcile %s: %v", acct.Name, err)
			sum.Failed++
			continue
		}
		if _, kept := keep[acct.Name]; kept {
			e.rep.Info("keeping %s", acct.Name)
			sum.Kept++
			continue
		}
		switch action {
		case ActionDelete:
			e.deleteOne(acct, &sum)
		default:
			e.disableOne(acct, st, &sum)
		}
	}
	return sum, nil
}

func (e *Engine) disableOne(acct identity.Account, st identity.Status, sum *Summary) {
	if st == identity.StatusLocked {
		// Idempotent: locking a locked account is not an error. The
		// ledger is left alone so we never duplicate an entry, and a
		// lock we did not place stays off the books.
		e.rep.Info("%s is already locked, skipping", acct.Name)
		sum.Skipped++
		return
	}
	if err := e.src.Lock(acct.Name); err != nil {
		e.rep.Error("lock %s: %v", acct.Name, err)
		sum.Failed++
		return
	}
	if err := e.src.ExpireNow(acct.Name); err != nil {
		e.rep.Error("expire %s: %v", acct.Name, err)
	}
	if err := e.ledger.Add(acct.Name); err != nil {
		e.rep.Error("ledger add %s: %v", acct.Name, err)
	}
	if err := e.src.RemoveHome(acct.Name); err != nil {
		e.rep.Warn("remove home of %s: %v", acct.Name, err)
	}
	e.rep.Action("disabled %s (uid %d)", acct.Name, acct.UID)
	sum.Disabled++
}

func (e *Engine) deleteOne(acct identity.Account, sum *Summary) {
	if err := e.src.Remove(acct.Name); err != nil {
		e.rep.Error("delete %s: %v", acct.Name, err)
		sum.Failed++
		return
	}
	if err := e.deletions.Append(acct.Name); err != nil {
		e.rep.Error("deletion record for %s: %v", acct.Name, err)
	}
	// The account no longer exists, so any ledger entry is void.
	if err := e.ledger.Remove(acct.Name); err != nil {
		e.rep.Error("ledger remove %s: %v", acct.Name, err)
	}
	e.rep.Action("deleted %s (uid %d)", acct.Name, acct.UID)
	sum.Deleted++
}

// ReenableCandidates reconciles every ledger entry and returns the
// ones still live-locked, sorted by the ledger's own order (it saves
// sorted). Entries for accounts that turned active on their own are
// purged as a side effect.
func (e *Engine) ReenableCandidates() ([]string, error) {
	set, err := e.ledger.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)

	var out []string
	for _, n := range names {
		st, err := e.Reconcile(n)
		if err != nil {
			return nil, err
		}
		if st == identity.StatusLocked {
			out = append(out, n)
		}
	}
	return out, nil
}

// Reenable unlocks the given accounts, clears forced expiry, and
// removes their ledger entries. Idempotent per account.
func (e *Engine) Reenable(names []string) Summary {
	var sum Summary
	for _, n := range names {
		if err := e.src.Unlock(n); err != nil {
			e.rep.Error("unlock %s: %v", n, err)
			sum.Failed++
			continue
		}
		if err := e.src.ClearExpiry(n); err != nil {
			e.rep.Error("clear expiry of %s: %v", n, err)
		}
		if err := e.ledger.Remove(n); err != nil {
			e.rep.Error("ledger remove %s: %v", n, err)
		}
		e.rep.Action("re-enabled %s", n)
		sum.Reenabled++
	}
	return sum
}

// PrivilegedGroupsOf intersects the account's group memberships with
// the scanned privilege grant set.
func (e *Engine) PrivilegedGroupsOf(name string, privileged []string) ([]string, error) {
	groups, err := e.src.GroupsOf(name)
	if err != nil {
		return nil, err
	}
	grantSet := map[string]struct{}{}
	for _, g := range privileged {
		grantSet[g] = struct{}{}
	}
	var out []string
	for _, g := range groups {
		if _, ok := grantSet[g]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// RevokePrivileges walks each candidate's privileged memberships and
// asks decide once per (account, group) pair; approved pairs lose the
// membership. Returns the number of revocations applied.
func (e *Engine) RevokePrivileges(candidates []identity.Account, privileged []string, decide func(account, group string) bool) (int, error) {
	revoked := 0
	for _, acct := range candidates {
		if _, err := e.Reconcile(acct.Name); err != nil {
			e.rep.Error("reconcile %s: %v", acct.Name, err)
			continue
		}
		matches, err := e.PrivilegedGroupsOf(acct.Name, privileged)
		if err != nil {
			e.rep.Error("groups of %s: %v", acct.Name, err)
			continue
		}
		for _, g := range matches {
			if !decide(acct.Name, g) {
				e.rep.Info("kept %s in %s", acct.Name, g)
				continue
			}
			if err := e.src.RemoveFromGroup(acct.Name, g); err != nil {
				e.rep.Error("remove %s from %s: %v", acct.Name, g, err)
				continue
			}
			e.rep.Action("revoked %s from privileged group %s", acct.Name, g)
			revoked++
		}
	}
	return revoked, nil
}
