package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tok1", "alice"))
	name, err := c.Get(ctx, "tok1")
	require.NoError(t, err)
	require.Equal(t, "alice", name)

	name, err = c.Get(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, name)

	require.NoError(t, c.Delete(ctx, "tok1"))
	name, err = c.Get(ctx, "tok1")
	require.NoError(t, err)
	require.Empty(t, name)
}
