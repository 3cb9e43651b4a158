package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(auth *AuthContext) *Context {
	return NewContext(context.Background(), auth, "fc1", nil)
}

func TestFunctionTool_Success(t *testing.T) {
	sum := newSumTool()

	result, err := sum.Call(testContext(nil), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
	assert.False(t, sum.RequiresAuth())
}

func TestFunctionTool_AuthRequired(t *testing.T) {
	secret := NewFunctionTool("read_secret", "Read a secret value", nil,
		func(toolCtx *Context, _ map[string]any) (any, error) {
			return "for " + toolCtx.Auth().UserID, nil
		},
		WithAuthRequired(),
	)
	assert.True(t, secret.RequiresAuth())

	// No auth context: permission error, function never runs.
	_, err := secret.Call(testContext(nil), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodePermission, toolErr.Code)

	// Authenticated caller passes through.
	result, err := secret.Call(testContext(&AuthContext{UserID: "u1"}), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "for u1", result)
}

func TestFunctionTool_WrapsErrors(t *testing.T) {
	failing := NewFunctionTool("fail", "Always fails", nil,
		func(_ *Context, _ map[string]any) (any, error) {
			return nil, assert.AnError
		})

	_, err := failing.Call(testContext(nil), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
}

func TestFunctionTool_PassesToolErrorsThrough(t *testing.T) {
	timingOut := NewFunctionTool("slow", "Slow op", nil,
		func(_ *Context, _ map[string]any) (any, error) {
			return nil, NewToolError("slow", "operation timed out", CodeTimeout)
		})

	_, err := timingOut.Call(testContext(nil), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeTimeout, toolErr.Code)
}
