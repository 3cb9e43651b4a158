package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shibata-rui-dn/OneAgent-sub001/provider"
)

// -------------------- Accumulator Tests --------------------

func TestAccumulator_SingleFragment(t *testing.T) {
	acc := newAccumulator()
	acc.merge(provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "read_file", Arguments: `{"path":"/tmp/a"}`})

	calls := acc.finalize()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.Equal(t, `{"path":"/tmp/a"}`, calls[0].Arguments)
}

func TestAccumulator_SplitInvariance(t *testing.T) {
	// The reassembled call must be identical no matter how the argument text
	// was fragmented.
	args := `{"path":"/tmp/a","mode":"full"}`
	for _, splits := range []int{1, 2, 3, 7, len(args)} {
		acc := newAccumulator()
		acc.merge(provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "read_file"})
		step := (len(args) + splits - 1) / splits
		for i := 0; i < len(args); i += step {
			end := i + step
			if end > len(args) {
				end = len(args)
			}
			acc.merge(provider.ToolCallDelta{Index: 0, Arguments: args[i:end]})
		}

		calls := acc.finalize()
		require.Len(t, calls, 1, "splits=%d", splits)
		assert.Equal(t, args, calls[0].Arguments, "splits=%d", splits)
	}
}

func TestAccumulator_InterleavedIndices(t *testing.T) {
	acc := newAccumulator()
	// Fragments for three calls arrive interleaved and out of index order.
	acc.merge(provider.ToolCallDelta{Index: 1, ID: "call_b", Name: "b_tool"})
	acc.merge(provider.ToolCallDelta{Index: 0, ID: "call_a", Name: "a_tool"})
	acc.merge(provider.ToolCallDelta{Index: 2, ID: "call_c", Name: "c_tool"})
	acc.merge(provider.ToolCallDelta{Index: 1, Arguments: `{"b":`})
	acc.merge(provider.ToolCallDelta{Index: 0, Arguments: `{"a":1}`})
	acc.merge(provider.ToolCallDelta{Index: 1, Arguments: `2}`})
	acc.merge(provider.ToolCallDelta{Index: 2, Arguments: `{}`})

	calls := acc.finalize()
	require.Len(t, calls, 3)
	// Finalized order follows the provider index, not arrival order.
	assert.Equal(t, []string{"call_a", "call_b", "call_c"}, []string{calls[0].ID, calls[1].ID, calls[2].ID})
	assert.Equal(t, `{"b":2}`, calls[1].Arguments)
}

func TestAccumulator_IDSetOnce(t *testing.T) {
	acc := newAccumulator()
	acc.merge(provider.ToolCallDelta{Index: 0, ID: "call_first"})
	acc.merge(provider.ToolCallDelta{Index: 0, ID: "call_second"})

	calls := acc.finalize()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_first", calls[0].ID)
}

func TestAccumulator_MissingIDGetsGenerated(t *testing.T) {
	acc := newAccumulator()
	acc.merge(provider.ToolCallDelta{Index: 0, Name: "read_file", Arguments: `{}`})

	calls := acc.finalize()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0].ID, "call_"))
	assert.NotEqual(t, "call_", calls[0].ID)
}

func TestAccumulator_Empty(t *testing.T) {
	assert.Nil(t, newAccumulator().finalize())
}
