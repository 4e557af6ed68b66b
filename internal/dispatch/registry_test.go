package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.Group([]string{"partition"}, "Manage partitions.")
	r.Register([]string{"partition", "list"}, &CommandSpec{Aliases: []string{"ls"}})
	r.Register([]string{"partition", "show"}, &CommandSpec{})
	r.Register([]string{"partition", "start"}, &CommandSpec{})
	r.Register([]string{"partition", "stop"}, &CommandSpec{})
	r.Register([]string{"cpc", "list"}, &CommandSpec{})
	r.Register([]string{"unselect"}, &CommandSpec{})
	return r
}

func TestResolveExact(t *testing.T) {
	r := testRegistry(t)

	node, rest, err := r.Resolve([]string{"partition", "list", "--type"})
	require.NoError(t, err)
	assert.Equal(t, "partition list", node.Path())
	assert.Equal(t, []string{"--type"}, rest)
}

func TestResolveAlias(t *testing.T) {
	r := testRegistry(t)

	node, _, err := r.Resolve([]string{"partition", "ls"})
	require.NoError(t, err)
	assert.Equal(t, "list", node.Name)
}

func TestResolveUniquePrefix(t *testing.T) {
	r := testRegistry(t)

	// "part" abbreviates only "partition"; "li" only "list".
	node, _, err := r.Resolve([]string{"part", "li"})
	require.NoError(t, err)
	assert.Equal(t, "partition list", node.Path())
}

func TestResolveExactBeatsPrefix(t *testing.T) {
	r := NewRegistry()
	r.Register([]string{"stop"}, &CommandSpec{})
	r.Register([]string{"stopall"}, &CommandSpec{})

	// "stop" is a prefix of both, but an exact match is never ambiguous.
	node, _, err := r.Resolve([]string{"stop"})
	require.NoError(t, err)
	assert.Equal(t, "stop", node.Name)
}

func TestResolveAmbiguousPrefix(t *testing.T) {
	r := testRegistry(t)

	_, _, err := r.Resolve([]string{"partition", "s"})
	var ambiguous *AmbiguousCommandError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "s", ambiguous.Token)
	assert.Equal(t, []string{"show", "start", "stop"}, ambiguous.Candidates)
}

func TestResolveUnknown(t *testing.T) {
	r := testRegistry(t)

	_, _, err := r.Resolve([]string{"adapter", "list"})
	var unknown *UnknownCommandError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "adapter", unknown.Token)

	_, _, err = r.Resolve([]string{"partition", "delete"})
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "delete", unknown.Token)
	assert.Equal(t, "partition", unknown.Path)
}

func TestResolveGroupWithoutCommand(t *testing.T) {
	r := testRegistry(t)

	node, rest, err := r.Resolve([]string{"partition"})
	require.NoError(t, err)
	assert.Nil(t, node.Spec)
	assert.Empty(t, rest)
}

func TestResolveEmpty(t *testing.T) {
	r := testRegistry(t)

	_, _, err := r.Resolve(nil)
	assert.Error(t, err)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := testRegistry(t)

	assert.Panics(t, func() {
		r.Register([]string{"partition", "list"}, &CommandSpec{})
	})
}

func TestChildrenOrder(t *testing.T) {
	r := testRegistry(t)

	node, _, err := r.Resolve([]string{"partition"})
	require.NoError(t, err)

	var names []string
	for _, c := range node.Children() {
		names = append(names, c.Name)
	}
	// Registration order, not alphabetical.
	assert.Equal(t, []string{"list", "show", "start", "stop"}, names)
}
