package repl

import (
	"sort"
	"strings"

	"github.com/yndnr/kvmesh-go/internal/command"
)

var builtins = []string{"HELP", "EXIT", "QUIT", "CLEAR"}

// Completer knows the server's command names and the shell builtins.
type Completer struct {
	commands map[string]*command.Command
	names    []string
}

// NewCompleter creates a completer over the server command table.
func NewCompleter() *Completer {
	c := &Completer{commands: make(map[string]*command.Command)}
	for _, cmd := range command.Catalog() {
		c.commands[cmd.Name] = cmd
		c.names = append(c.names, cmd.Name)
	}
	for _, b := range builtins {
		if _, ok := c.commands[b]; !ok {
			c.names = append(c.names, b)
		}
	}
	sort.Strings(c.names)
	return c
}

// Complete returns the names starting with prefix, case-insensitively.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToUpper(prefix)
	var out []string
	for _, n := range c.names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out
}

// Lookup returns the server command named name.
func (c *Completer) Lookup(name string) (*command.Command, bool) {
	cmd, ok := c.commands[strings.ToUpper(name)]
	return cmd, ok
}

// Suggest returns the closest known name within two edits, or "".
func (c *Completer) Suggest(name string) string {
	name = strings.ToUpper(name)
	best, bestDist := "", 3
	for _, n := range c.names {
		if d := distance(name, n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// distance is the Levenshtein edit distance.
func distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
