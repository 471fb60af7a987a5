package selection

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var five = []string{"u1", "u2", "u3", "u4", "u5"}

func TestPartitionKeepTwoAndFour(t *testing.T) {
	keepIdx, warnings := ParseIndices("2 4", len(five))
	assert.Empty(t, warnings)

	keep, actOn := Partition(five, keepIdx)
	assert.Equal(t, []string{"u1", "u3", "u5"}, actOn)
	assert.Contains(t, keep, "u2")
	assert.Contains(t, keep, "u4")
}

func TestPartitionEmptyInputActsOnEveryone(t *testing.T) {
	keepIdx, warnings := ParseIndices("", len(five))
	assert.Empty(t, warnings)

	keep, actOn := Partition(five, keepIdx)
	assert.Empty(t, keep)
	assert.Equal(t, five, actOn)
}

func TestPartitionInvalidTokenWarnsAndContinues(t *testing.T) {
	keepIdx, warnings := ParseIndices("2 99", len(five))
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "99")

	_, actOn := Partition(five, keepIdx)
	assert.Equal(t, []string{"u1", "u3", "u4", "u5"}, actOn)
}

func TestParseIndicesNonNumeric(t *testing.T) {
	keepIdx, warnings := ParseIndices("1 x 0 -3 3", 5)
	assert.Len(t, warnings, 3)
	assert.Len(t, keepIdx, 2)
	assert.Contains(t, keepIdx, 1)
	assert.Contains(t, keepIdx, 3)
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"sure\n", false},
		{"", false}, // EOF declines
	}
	for _, c := range cases {
		var out bytes.Buffer
		p := NewPrompter(strings.NewReader(c.input), &out)
		assert.Equal(t, c.want, p.Confirm("proceed?"), "input %q", c.input)
		assert.Contains(t, out.String(), "[y/N]")
	}
}

func TestPrompterSequentialReads(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  2 4 \ny\n"), &out)

	assert.Equal(t, "2 4", p.ReadLine("keep"))
	assert.True(t, p.Confirm("go"))
}
