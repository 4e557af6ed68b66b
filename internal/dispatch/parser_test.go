package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(spec *CommandSpec) *Node {
	r := NewRegistry()
	r.Register([]string{"create"}, spec)
	node, _, err := r.Resolve([]string{"create"})
	if err != nil {
		panic(err)
	}
	return node
}

func TestBindTypedOptions(t *testing.T) {
	node := testNode(&CommandSpec{
		Options: []OptionSpec{
			{Name: "name", Type: OptionString, Required: true},
			{Name: "ifl-processors", Type: OptionInt, Default: 1},
			{Name: "dry-run", Type: OptionBool},
			{Name: "prop", Shorthand: "p", Type: OptionStringSlice},
		},
		MaxArgs: 0,
	})

	inv, err := bind(node, []string{
		"--name", "PART1",
		"--ifl-processors", "4",
		"--dry-run",
		"-p", "a=1", "--prop", "b=2",
	})
	require.NoError(t, err)

	assert.Equal(t, "PART1", inv.String("name"))
	assert.Equal(t, 4, inv.Int("ifl-processors"))
	assert.True(t, inv.Bool("dry-run"))
	assert.Equal(t, []string{"a=1", "b=2"}, inv.Strings("prop"))
}

func TestBindDefaults(t *testing.T) {
	node := testNode(&CommandSpec{
		Options: []OptionSpec{
			{Name: "type", Type: OptionString, Default: "linux"},
			{Name: "initial-memory", Type: OptionInt, Default: 1024},
		},
	})

	inv, err := bind(node, nil)
	require.NoError(t, err)
	assert.Equal(t, "linux", inv.String("type"))
	assert.Equal(t, 1024, inv.Int("initial-memory"))
	assert.False(t, inv.Changed("type"))
}

func TestBindLastOccurrenceWins(t *testing.T) {
	node := testNode(&CommandSpec{
		Options: []OptionSpec{{Name: "name", Type: OptionString}},
	})

	inv, err := bind(node, []string{"--name", "A", "--name", "B"})
	require.NoError(t, err)
	assert.Equal(t, "B", inv.String("name"))
}

func TestBindRequiredMissing(t *testing.T) {
	node := testNode(&CommandSpec{
		Options: []OptionSpec{{Name: "name", Type: OptionString, Required: true}},
	})

	_, err := bind(node, nil)
	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Message, "--name")
}

func TestBindUnknownOption(t *testing.T) {
	node := testNode(&CommandSpec{})

	_, err := bind(node, []string{"--bogus"})
	var invalid *InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)
}

func TestBindBadInt(t *testing.T) {
	node := testNode(&CommandSpec{
		Options: []OptionSpec{{Name: "ifl-processors", Type: OptionInt}},
	})

	_, err := bind(node, []string{"--ifl-processors", "many"})
	var invalid *InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)
}

func TestBindMutuallyExclusive(t *testing.T) {
	node := testNode(&CommandSpec{
		Options: []OptionSpec{
			{Name: "names-only", Type: OptionBool},
			{Name: "uri", Type: OptionBool},
		},
		Exclusive: [][]string{{"names-only", "uri"}},
	})

	inv, err := bind(node, []string{"--names-only"})
	require.NoError(t, err)
	assert.True(t, inv.Bool("names-only"))

	_, err = bind(node, []string{"--names-only", "--uri"})
	var invalid *InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Message, "mutually exclusive")
}

func TestBindArity(t *testing.T) {
	node := testNode(&CommandSpec{
		ArgNames: []string{"partition"},
		MinArgs:  1,
		MaxArgs:  1,
	})

	inv, err := bind(node, []string{"PART1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PART1"}, inv.Args)

	_, err = bind(node, nil)
	var invalid *InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)

	_, err = bind(node, []string{"PART1", "PART2"})
	assert.ErrorAs(t, err, &invalid)
}

func TestBindUnlimitedArgs(t *testing.T) {
	node := testNode(&CommandSpec{MinArgs: 1, MaxArgs: -1})

	inv, err := bind(node, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, inv.Args, 3)
}

func TestBindHelpRequest(t *testing.T) {
	node := testNode(&CommandSpec{
		Options: []OptionSpec{{Name: "name", Type: OptionString, Required: true}},
	})

	// --help wins over every other binding rule, required options
	// included.
	_, err := bind(node, []string{"--help"})
	assert.ErrorIs(t, err, errHelpRequested)
}

func TestBindOptionsAfterArgs(t *testing.T) {
	node := testNode(&CommandSpec{
		Options:  []OptionSpec{{Name: "cpc", Type: OptionString}},
		ArgNames: []string{"partition"},
		MinArgs:  1,
		MaxArgs:  1,
	})

	// pflag interleaves options and positionals in either order.
	inv, err := bind(node, []string{"PART1", "--cpc", "CPC1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PART1"}, inv.Args)
	assert.Equal(t, "CPC1", inv.String("cpc"))
}

func TestSpecUsage(t *testing.T) {
	spec := &CommandSpec{
		Options:  []OptionSpec{{Name: "cpc", Type: OptionString}},
		ArgNames: []string{"partition", "extra"},
		MinArgs:  1,
		MaxArgs:  2,
	}
	assert.Equal(t, "partition show [options] <partition> [extra]",
		spec.Usage("partition show"))
}
