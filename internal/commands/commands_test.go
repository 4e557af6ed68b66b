package commands

import (
	"testing"

	"github.com/zhmcclient/zhmccli/internal/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBuildsCompleteTree(t *testing.T) {
	r := dispatch.NewRegistry()
	Register(r)

	paths := [][]string{
		{"cpc", "list"},
		{"cpc", "show"},
		{"select", "cpc"},
		{"unselect"},
		{"partition", "list"},
		{"partition", "show"},
		{"partition", "create"},
		{"partition", "update"},
		{"partition", "delete"},
		{"partition", "start"},
		{"partition", "stop"},
		{"partition", "dump"},
		{"session", "info"},
		{"session", "logoff"},
	}
	for _, path := range paths {
		node, rest, err := r.Resolve(path)
		require.NoError(t, err, path)
		require.NotNil(t, node.Spec, path)
		assert.Empty(t, rest, path)
		assert.NotNil(t, node.Spec.Handler, path)
	}
}

func TestRegisterAbbreviations(t *testing.T) {
	r := dispatch.NewRegistry()
	Register(r)

	node, _, err := r.Resolve([]string{"part", "ls"})
	require.NoError(t, err)
	assert.Equal(t, "partition list", node.Path())

	// "s" could be select or session; abbreviation must refuse to guess.
	_, _, err = r.Resolve([]string{"s"})
	var ambiguous *dispatch.AmbiguousCommandError
	assert.ErrorAs(t, err, &ambiguous)
}

func TestParseProperties(t *testing.T) {
	props, err := parseProperties([]string{
		"description=test partition",
		"ifl-processors=4",
		"reserve-resources=true",
		"boot-device=ftp",
	})
	require.NoError(t, err)

	assert.Equal(t, "test partition", props["description"])
	assert.Equal(t, 4, props["ifl-processors"])
	assert.Equal(t, true, props["reserve-resources"])
	assert.Equal(t, "ftp", props["boot-device"])
}

func TestParsePropertiesKeepsEmptyValue(t *testing.T) {
	props, err := parseProperties([]string{"description="})
	require.NoError(t, err)
	assert.Equal(t, "", props["description"])
}

func TestParsePropertiesRejectsMalformed(t *testing.T) {
	for _, pair := range []string{"no-equals", "=value", " =value"} {
		_, err := parseProperties([]string{pair})
		assert.Error(t, err, pair)
	}
}

func TestValidateChoice(t *testing.T) {
	assert.NoError(t, validateChoice("type", "linux", partitionTypes))
	assert.NoError(t, validateChoice("type", "ssc", partitionTypes))

	err := validateChoice("type", "kvm", partitionTypes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kvm")
	assert.Contains(t, err.Error(), "linux, ssc, zvm")
}
