package dispatch

import (
	"fmt"
	"sort"
	"strings"
)

// UnknownCommandError indicates a token matched no command or group name.
type UnknownCommandError struct {
	Token string
	// Path is the group the token was looked up in, empty at top level.
	Path string
}

func (e *UnknownCommandError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("unknown command %q in %q", e.Token, e.Path)
	}
	return fmt.Sprintf("unknown command %q", e.Token)
}

// AmbiguousCommandError indicates an abbreviated token was a prefix of
// more than one command name.
type AmbiguousCommandError struct {
	Token      string
	Candidates []string
}

func (e *AmbiguousCommandError) Error() string {
	return fmt.Sprintf("command %q is ambiguous: %s", e.Token, strings.Join(e.Candidates, ", "))
}

// InvalidArgumentError indicates argument binding failed before any remote
// call was made.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string { return e.Message }

// Node is a named entry in the command tree: a group when it has children,
// a command when it carries a spec.
type Node struct {
	Name    string
	Help    string
	Aliases []string
	Spec    *CommandSpec

	parent   *Node
	children map[string]*Node
	// order preserves registration order for help listings.
	order []string
}

// Path returns the space-joined path from the root to this node.
func (n *Node) Path() string {
	if n.parent == nil || n.parent.Name == "" {
		return n.Name
	}
	return n.parent.Path() + " " + n.Name
}

// Children returns the child nodes in registration order.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.children[name])
	}
	return out
}

// child finds a child by exact name, exact alias, or unique prefix, in
// that precedence. A non-unique prefix is an AmbiguousCommandError.
func (n *Node) child(token string) (*Node, error) {
	if c, ok := n.children[token]; ok {
		return c, nil
	}
	for _, c := range n.children {
		for _, alias := range c.Aliases {
			if alias == token {
				return c, nil
			}
		}
	}

	var matches []*Node
	for _, name := range n.order {
		if strings.HasPrefix(name, token) {
			matches = append(matches, n.children[name])
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, &UnknownCommandError{Token: token, Path: n.Path()}
	default:
		candidates := make([]string, len(matches))
		for i, m := range matches {
			candidates[i] = m.Name
		}
		sort.Strings(candidates)
		return nil, &AmbiguousCommandError{Token: token, Candidates: candidates}
	}
}

// Registry is the command tree. Built once at startup, read-only
// afterwards, so concurrent reads (the shell completer) are safe.
type Registry struct {
	root *Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{root: &Node{children: make(map[string]*Node)}}
}

// Root returns the root node, for completion over the whole tree.
func (r *Registry) Root() *Node { return r.root }

// Group declares (or re-describes) a command group at path.
func (r *Registry) Group(path []string, help string) *Node {
	n := r.mkpath(path)
	n.Help = help
	return n
}

// Register attaches a command spec at path, creating intermediate groups
// as needed. Panics on duplicate registration; the tree is assembled from
// static declarations at startup, so a collision is a programming error.
func (r *Registry) Register(path []string, spec *CommandSpec) {
	if len(path) == 0 {
		panic("dispatch: empty registration path")
	}
	parent := r.mkpath(path[:len(path)-1])
	name := path[len(path)-1]
	if _, exists := parent.children[name]; exists {
		panic(fmt.Sprintf("dispatch: duplicate registration of %q", strings.Join(path, " ")))
	}
	spec.Name = name
	node := &Node{
		Name:    name,
		Help:    spec.Help,
		Aliases: spec.Aliases,
		Spec:    spec,
		parent:  parent,
	}
	parent.children[name] = node
	parent.order = append(parent.order, name)
}

func (r *Registry) mkpath(path []string) *Node {
	n := r.root
	for _, name := range path {
		child, ok := n.children[name]
		if !ok {
			child = &Node{Name: name, parent: n, children: make(map[string]*Node)}
			n.children[name] = child
			n.order = append(n.order, name)
		}
		n = child
	}
	return n
}

// Resolve walks the tree greedily, matching leading tokens to group and
// command names, and returns the resolved node plus the remaining tokens.
// Walking stops at the first command node; everything after it belongs to
// the argument parser.
func (r *Registry) Resolve(tokens []string) (*Node, []string, error) {
	n := r.root
	for i, token := range tokens {
		if n.Spec != nil {
			return n, tokens[i:], nil
		}
		child, err := n.child(token)
		if err != nil {
			return nil, nil, err
		}
		n = child
	}
	if n == r.root {
		return nil, nil, &UnknownCommandError{Token: ""}
	}
	return n, nil, nil
}
