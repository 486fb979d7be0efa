package shell

import (
	"fmt"
	"testing"

	shlex "github.com/anmitsu/go-shlex"
	"github.com/stretchr/testify/assert"
)

func ExampleSplit() {
	fmt.Printf("%q\n", Split(`echo "hello world"   it's  'quoted'`))

	// Output: ["echo" "hello world" "it's" "quoted"]
}

func TestTokenize(t *testing.T) {
	cases := map[string]struct {
		line     string
		expected []Token
	}{
		"empty": {
			line:     "",
			expected: nil,
		},
		"blank": {
			line:     " \t  ",
			expected: nil,
		},
		"words": {
			line:     "ls -l  /tmp",
			expected: []Token{{Value: "ls"}, {Value: "-l"}, {Value: "/tmp"}},
		},
		"tabs": {
			line:     "\techo\ta\t",
			expected: []Token{{Value: "echo"}, {Value: "a"}},
		},
		"double quoted": {
			line:     `echo "a  b" c`,
			expected: []Token{{Value: "echo"}, {Value: "a  b", Quote: '"'}, {Value: "c"}},
		},
		"single quoted": {
			line:     `echo '$HOME'`,
			expected: []Token{{Value: "echo"}, {Value: "$HOME", Quote: '\''}},
		},
		"empty quotes": {
			line:     `echo ""`,
			expected: []Token{{Value: "echo"}, {Value: "", Quote: '"'}},
		},
		"quote inside word is literal": {
			line:     `echo it's`,
			expected: []Token{{Value: "echo"}, {Value: "it's"}},
		},
		"quote not followed by blank stays open": {
			line:     `echo "a"b c"`,
			expected: []Token{{Value: "echo"}, {Value: `a"b c`, Quote: '"'}},
		},
		"other quote kept": {
			line:     `echo "it's"`,
			expected: []Token{{Value: "echo"}, {Value: "it's", Quote: '"'}},
		},
		"unterminated": {
			line:     `echo 'a b`,
			expected: []Token{{Value: "echo"}, {Value: "a b", Quote: '\''}},
		},
		"redirect": {
			line:     "echo hi 2>&1 >out",
			expected: []Token{{Value: "echo"}, {Value: "hi"}, {Value: "2>&1"}, {Value: ">out"}},
		},
		"unicode": {
			line:     "echo héllo 世界",
			expected: []Token{{Value: "echo"}, {Value: "héllo"}, {Value: "世界"}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, Tokenize(tc.line))
		})
	}
}

func TestSplitMatchesShlex(t *testing.T) {
	// Lines where csh style splitting agrees with POSIX splitting.
	lines := []string{
		"ls",
		"ls -la /usr/bin",
		"  leading and trailing  ",
		"FOO=bar env",
		`echo "a b" 'c d' e`,
		`grep 'x y' file.txt`,
		"a\tb\tc",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			expected, err := shlex.Split(line, true)
			assert.NoError(t, err)

			actual := Split(line)
			if len(expected) == 0 {
				assert.Empty(t, actual)
				return
			}
			assert.Equal(t, expected, actual)
		})
	}
}
