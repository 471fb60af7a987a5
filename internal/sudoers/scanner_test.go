package sudoers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "sudoers")
	include := filepath.Join(dir, "sudoers.d")
	require.NoError(t, os.MkdirAll(include, 0700))

	require.NoError(t, os.WriteFile(primary, []byte(`
Defaults env_reset
root ALL=(ALL:ALL) ALL
%wheel ALL=(ALL) ALL
# %disabled ALL=(ALL) ALL
	%spaced ALL=(ALL) NOPASSWD: ALL
`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(include, "90-ops"), []byte(`%admins ALL=(ALL) ALL
%wheel ALL=(ALL) ALL
`), 0600))

	groups, err := Scan(primary, include)
	require.NoError(t, err)
	assert.Equal(t, []string{"admins", "spaced", "wheel"}, groups)
}

func TestScanMissingIncludeDir(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "sudoers")
	require.NoError(t, os.WriteFile(primary, []byte("%wheel ALL=(ALL) ALL\n"), 0600))

	groups, err := Scan(primary, filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	assert.Equal(t, []string{"wheel"}, groups)
}

func TestScanMissingPrimaryIsError(t *testing.T) {
	dir := t.TempDir()
	_, err := Scan(filepath.Join(dir, "nope"), dir)
	assert.Error(t, err)
}

func TestGrantedGroup(t *testing.T) {
	cases := []struct {
		line string
		want string
		ok   bool
	}{
		{"%wheel ALL=(ALL) ALL", "wheel", true},
		{"  %admins\tALL=(ALL) ALL", "admins", true},
		{"%ops:ALL=(ALL) ALL", "ops", true},
		{"%grp=nothing", "grp", true},
		{"# %commented ALL=(ALL) ALL", "", false},
		{"Defaults env_reset", "", false},
		{"alice ALL=(ALL) ALL", "", false},
		{"%", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := grantedGroup(c.line)
		assert.Equal(t, c.ok, ok, "line %q", c.line)
		assert.Equal(t, c.want, got, "line %q", c.line)
	}
}
