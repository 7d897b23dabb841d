package decode

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/zbxshipper"
)

func TestYAML(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty document",
			input:    "",
			expected: "",
		},
		{
			name: "keeps document order",
			input: `
keyA:
  keyB:
    keyC: propD
  keyX: propZ
a: b
`,
			expected: "- keyA.keyB.keyC propD\n- keyA.keyX propZ\n- a b\n",
		},
		{
			name:     "scalars keep their literal text",
			input:    "float: 1.50\nyes: true\nquoted: \"x y\"\nnull1: ~\nnull2: null\n",
			expected: "- float 1.50\n- yes true\n- quoted x y\n- null1 null\n- null2 null\n",
		},
		{
			name:     "sequences are keyed by index",
			input:    "disks:\n  - free: 10\n  - free: 20\n",
			expected: "- disks.0.free 10\n- disks.1.free 20\n",
		},
		{
			name:     "aliases are resolved",
			input:    "base: &b\n  x: 1\ncopy: *b\n",
			expected: "- base.x 1\n- copy.x 1\n",
		},
		{
			name:     "only the first document is read",
			input:    "a: 1\n---\nb: 2\n",
			expected: "- a 1\n",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v, err := YAML(strings.NewReader(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, lines(t, v))
		})
	}
}

func TestYAMLErrors(t *testing.T) {
	t.Parallel()
	_, err := YAML(strings.NewReader("a: [1, 2\n"))
	require.Error(t, err)

	_, err = YAML(strings.NewReader("a:\n\tb: 1\n"))
	require.Error(t, err)
}

// nestedAnchors returns a document where every level is a list of ten aliases of the previous one.
func nestedAnchors(levels int) string {
	var sb strings.Builder
	sb.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i < levels; i++ {
		prev := "*l" + strconv.Itoa(i-1)
		fmt.Fprintf(&sb, "l%d: &l%d [%s]\n", i, i, strings.Repeat(prev+", ", 9)+prev)
	}
	return sb.String()
}

func TestYAMLAliasExpansionIsBounded(t *testing.T) {
	t.Parallel()
	doc := nestedAnchors(6)
	require.Less(t, len(doc), 512)

	_, err := YAML(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expands to more than")
}

func TestYAMLModestAliasUse(t *testing.T) {
	t.Parallel()
	v, err := YAML(strings.NewReader(nestedAnchors(3)))
	require.NoError(t, err)
	assert.Len(t, zbxshipper.Flatten("-", v), 10+100+1000)
}
