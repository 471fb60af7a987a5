package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfwani/lockdown/internal/identity"
	"github.com/sfwani/lockdown/internal/ledger"
	"github.com/sfwani/lockdown/internal/report"
)

// fakeSource is a stateful in-memory identity source. Mutations update
// the status map so later StatusOf calls observe them, the way the
// real shadow file would.
type fakeSource struct {
	status map[string]identity.Status
	groups map[string][]string
	homes  map[string]string

	lockErr   map[string]error
	removeErr map[string]error
	homeErr   map[string]error

	locked, unlocked, expired, cleared, removed []string
	groupRemovals                               [][2]string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		status:    map[string]identity.Status{},
		groups:    map[string][]string{},
		homes:     map[string]string{},
		lockErr:   map[string]error{},
		removeErr: map[string]error{},
		homeErr:   map[string]error{},
	}
}

func (f *fakeSource) ListCandidates(minUID int) ([]identity.Account, error) { return nil, nil }

func (f *fakeSource) StatusOf(name string) identity.Status { return f.status[name] }

func (f *fakeSource) GroupsOf(name string) ([]string, error) { return f.groups[name], nil }

func (f *fakeSource) HomeDirOf(name string) (string, bool) {
	h, ok := f.homes[name]
	return h, ok
}

func (f *fakeSource) Lock(name string) error {
	if err := f.lockErr[name]; err != nil {
		return err
	}
	f.status[name] = identity.StatusLocked
	f.locked = append(f.locked, name)
	return nil
}

func (f *fakeSource) Unlock(name string) error {
	f.status[name] = identity.StatusActive
	f.unlocked = append(f.unlocked, name)
	return nil
}

func (f *fakeSource) ExpireNow(name string) error {
	f.expired = append(f.expired, name)
	return nil
}

func (f *fakeSource) ClearExpiry(name string) error {
	f.cleared = append(f.cleared, name)
	return nil
}

func (f *fakeSource) Remove(name string) error {
	if err := f.removeErr[name]; err != nil {
		return err
	}
	delete(f.status, name)
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeSource) RemoveHome(name string) error { return f.homeErr[name] }

func (f *fakeSource) RemoveFromGroup(name, group string) error {
	f.groupRemovals = append(f.groupRemovals, [2]string{name, group})
	return nil
}

func (f *fakeSource) SetPasswordHash(name, hash string) error { return nil }

type fixture struct {
	src *fakeSource
	led *ledger.Store
	del *DeletionLog
	eng *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	src := newFakeSource()
	led := ledger.NewStore(filepath.Join(dir, "disabled_users"))
	del := NewDeletionLog(filepath.Join(dir, "deleted_users.log"))
	rep, err := report.New(io.Discard, "")
	require.NoError(t, err)
	return &fixture{src: src, led: led, del: del, eng: New(src, led, del, rep)}
}

func accounts(names ...string) []identity.Account {
	out := make([]identity.Account, len(names))
	for i, n := range names {
		out[i] = identity.Account{Name: n, UID: 1000 + i, Home: "/home/" + n}
	}
	return out
}

func ledgerNames(t *testing.T, led *ledger.Store) []string {
	t.Helper()
	set, err := led.Load()
	require.NoError(t, err)
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	return out
}

func TestReconcilePurgesStaleEntry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.led.Add("alice"))
	f.src.status["alice"] = identity.StatusActive

	st, err := f.eng.Reconcile("alice")
	require.NoError(t, err)
	assert.Equal(t, identity.StatusActive, st)
	assert.Empty(t, ledgerNames(t, f.led), "stale entry must be purged")
}

func TestReconcileKeepsEntryForLockedAccount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.led.Add("alice"))
	f.src.status["alice"] = identity.StatusLocked

	st, err := f.eng.Reconcile("alice")
	require.NoError(t, err)
	assert.Equal(t, identity.StatusLocked, st)
	assert.Equal(t, []string{"alice"}, ledgerNames(t, f.led))
}

func TestDisableBatch(t *testing.T) {
	f := newFixture(t)
	f.src.status["carol"] = identity.StatusLocked

	sum, err := f.eng.Run(ActionDisable, accounts("alice", "bob", "carol"),
		map[string]struct{}{"bob": {}})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Disabled)
	assert.Equal(t, 1, sum.Kept)
	assert.Equal(t, 1, sum.Skipped, "already-locked account is skipped, not an error")
	assert.Equal(t, 0, sum.Failed)

	assert.Equal(t, []string{"alice"}, f.src.locked)
	assert.Equal(t, []string{"alice"}, f.src.expired)
	assert.Equal(t, []string{"alice"}, ledgerNames(t, f.led),
		"the external lock on carol stays off the books")
}

func TestDisableAlreadyDisabledKeepsSingleLedgerEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Run(ActionDisable, accounts("alice"), nil)
	require.NoError(t, err)
	_, err = f.eng.Run(ActionDisable, accounts("alice"), nil)
	require.NoError(t, err)

	b, err := os.ReadFile(f.led.Path())
	require.NoError(t, err)
	assert.Equal(t, "alice\n", string(b), "no duplicate ledger entries")
	assert.Equal(t, []string{"alice"}, f.src.locked, "second run never re-locks")
}

func TestDisableLockFailureContinuesBatch(t *testing.T) {
	f := newFixture(t)
	f.src.lockErr["alice"] = errors.New("shadow busy")

	sum, err := f.eng.Run(ActionDisable, accounts("alice", "bob"), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Disabled)
	assert.Equal(t, []string{"bob"}, ledgerNames(t, f.led),
		"failed account must not enter the ledger")
}

func TestDisableHomeRemovalFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.src.homeErr["alice"] = errors.New("home busy")

	sum, err := f.eng.Run(ActionDisable, accounts("alice"), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Disabled)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, []string{"alice"}, ledgerNames(t, f.led))
}

func TestDeleteDropsLedgerEntryAndAppendsOneRecord(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.led.Add("alice"))
	f.src.status["alice"] = identity.StatusLocked
	f.src.status["bob"] = identity.StatusActive

	sum, err := f.eng.Run(ActionDelete, accounts("alice", "bob"), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Deleted)
	assert.Empty(t, ledgerNames(t, f.led))

	b, err := os.ReadFile(f.del.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	require.Len(t, lines, 2, "exactly one record per deletion")

	var prev time.Time
	for _, line := range lines {
		parts := strings.Split(line, "\t")
		require.Len(t, parts, 2)
		ts, err := time.Parse(time.RFC3339, parts[1])
		require.NoError(t, err)
		assert.False(t, ts.Before(prev), "timestamps must not decrease")
		prev = ts
	}
	assert.True(t, strings.HasPrefix(lines[0], "alice\t"))
	assert.True(t, strings.HasPrefix(lines[1], "bob\t"))
}

func TestDeleteFailureContinuesBatch(t *testing.T) {
	f := newFixture(t)
	f.src.removeErr["alice"] = errors.New("nfs sadness")

	sum, err := f.eng.Run(ActionDelete, accounts("alice", "bob"), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Deleted)

	b, err := os.ReadFile(f.del.Path())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(b), "\n"),
		"no deletion record for the failed account")
}

func TestReenableDisableReenableIsIdempotent(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Run(ActionDisable, accounts("alice"), nil)
	require.NoError(t, err)

	f.eng.Reenable([]string{"alice"})
	afterFirst := ledgerNames(t, f.led)

	_, err = f.eng.Run(ActionDisable, accounts("alice"), nil)
	require.NoError(t, err)
	f.eng.Reenable([]string{"alice"})

	assert.Equal(t, afterFirst, ledgerNames(t, f.led))
	assert.Empty(t, ledgerNames(t, f.led))
	assert.Equal(t, identity.StatusActive, f.src.StatusOf("alice"))
}

func TestReenableClearsExpiryAndLedger(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.led.Add("alice"))
	f.src.status["alice"] = identity.StatusLocked

	sum := f.eng.Reenable([]string{"alice"})
	assert.Equal(t, 1, sum.Reenabled)
	assert.Equal(t, []string{"alice"}, f.src.unlocked)
	assert.Equal(t, []string{"alice"}, f.src.cleared)
	assert.Empty(t, ledgerNames(t, f.led))
}

func TestReenableCandidatesReconcilesFirst(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.led.Add("alice"))
	require.NoError(t, f.led.Add("bob"))
	f.src.status["alice"] = identity.StatusLocked
	f.src.status["bob"] = identity.StatusActive // drifted

	names, err := f.eng.ReenableCandidates()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)
	assert.Equal(t, []string{"alice"}, ledgerNames(t, f.led), "drifted entry purged")
}

// failingSnap always errors, standing in for a full disk.
type failingSnap struct{}

func (failingSnap) Take(string, []string) (string, error) {
	return "", errors.New("disk full")
}

func TestSnapshotFailureAbortsBeforeAnyMutation(t *testing.T) {
	f := newFixture(t)
	f.eng.WithSnapshot(failingSnap{}, []string{"/etc/passwd"})

	_, err := f.eng.Run(ActionDelete, accounts("alice"), nil)
	require.Error(t, err)

	assert.Empty(t, f.src.removed)
	assert.Empty(t, f.src.locked)
	assert.Empty(t, ledgerNames(t, f.led))
	_, statErr := os.Stat(f.del.Path())
	assert.True(t, os.IsNotExist(statErr), "no deletion record written")
}

type recordingSnap struct {
	label string
	paths []string
}

func (r *recordingSnap) Take(label string, paths []string) (string, error) {
	r.label = label
	r.paths = paths
	return "/tmp/fake.tar.gz", nil
}

func TestSnapshotCoversActOnHomesOnly(t *testing.T) {
	f := newFixture(t)
	snap := &recordingSnap{}
	f.eng.WithSnapshot(snap, []string{"/etc/passwd"})
	f.src.homes["alice"] = "/home/alice"
	f.src.homes["bob"] = "/home/bob"

	_, err := f.eng.Run(ActionDisable, accounts("alice", "bob"),
		map[string]struct{}{"bob": {}})
	require.NoError(t, err)

	assert.Equal(t, "disable", snap.label)
	assert.Equal(t, []string{"/etc/passwd", "/home/alice"}, snap.paths)
}

func TestRevokePrivileges(t *testing.T) {
	f := newFixture(t)
	f.src.groups["alice"] = []string{"sudo", "users", "alice"}
	f.src.groups["bob"] = []string{"users", "bob"}

	var asked [][2]string
	revoked, err := f.eng.RevokePrivileges(accounts("alice", "bob"),
		[]string{"sudo", "admins"},
		func(account, group string) bool {
			asked = append(asked, [2]string{account, group})
			return true
		})
	require.NoError(t, err)

	assert.Equal(t, 1, revoked)
	assert.Equal(t, [][2]string{{"alice", "sudo"}}, asked,
		"one prompt per matching (account, group) pair")
	assert.Equal(t, [][2]string{{"alice", "sudo"}}, f.src.groupRemovals)
}

func TestRevokePrivilegesDeclined(t *testing.T) {
	f := newFixture(t)
	f.src.groups["alice"] = []string{"sudo"}

	revoked, err := f.eng.RevokePrivileges(accounts("alice"), []string{"sudo"},
		func(string, string) bool { return false })
	require.NoError(t, err)

	assert.Equal(t, 0, revoked)
	assert.Empty(t, f.src.groupRemovals)
}

func TestDeletionLogTimestampFormat(t *testing.T) {
	dir := t.TempDir()
	d := NewDeletionLog(filepath.Join(dir, "deleted.log"))
	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	n := 0
	d.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}

	require.NoError(t, d.Append("alice"))
	require.NoError(t, d.Append("bob"))

	b, err := os.ReadFile(d.Path())
	require.NoError(t, err)
	want := fmt.Sprintf("alice\t%s\nbob\t%s\n",
		base.Add(time.Second).Format(time.RFC3339),
		base.Add(2*time.Second).Format(time.RFC3339))
	assert.Equal(t, want, string(b))
}
