package push

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) *VAPIDKeys {
	t.Helper()
	keys, err := EnsureVAPIDKeys(t.TempDir() + "/vapid.json")
	require.NoError(t, err)
	return keys
}

func TestNilServiceIsNoOp(t *testing.T) {
	var svc *Service
	assert.Empty(t, svc.PublicKey())
	svc.Subscribe("alice", Subscription{Endpoint: "https://push.example/1"})
	svc.Unsubscribe("alice", "https://push.example/1")
	svc.Notify(context.Background(), "alice", "t", "b")

	assert.Nil(t, NewService(nil))
	assert.Nil(t, NewService(&VAPIDKeys{}))
}

func TestSubscribeDedupesAndBounds(t *testing.T) {
	svc := NewService(testKeys(t))
	require.NotNil(t, svc)

	sub := Subscription{Endpoint: "https://push.example/a"}
	svc.Subscribe("alice", sub)
	svc.Subscribe("alice", sub)
	assert.Len(t, svc.subs["alice"], 1)

	for i := 0; i < maxSubsPerUser+5; i++ {
		svc.Subscribe("alice", Subscription{Endpoint: fmt.Sprintf("https://push.example/%d", i)})
	}
	assert.Len(t, svc.subs["alice"], maxSubsPerUser)
	// Newest endpoints survive.
	last := svc.subs["alice"][maxSubsPerUser-1]
	assert.Equal(t, fmt.Sprintf("https://push.example/%d", maxSubsPerUser+4), last.Endpoint)
}

func TestUnsubscribe(t *testing.T) {
	svc := NewService(testKeys(t))
	svc.Subscribe("alice", Subscription{Endpoint: "https://push.example/a"})
	svc.Subscribe("alice", Subscription{Endpoint: "https://push.example/b"})

	svc.Unsubscribe("alice", "https://push.example/a")
	require.Len(t, svc.subs["alice"], 1)
	assert.Equal(t, "https://push.example/b", svc.subs["alice"][0].Endpoint)

	// Unknown endpoint and unknown user are no-ops.
	svc.Unsubscribe("alice", "https://push.example/zzz")
	svc.Unsubscribe("nobody", "https://push.example/a")
}

func TestVAPIDKeysPersistAcrossLoads(t *testing.T) {
	path := t.TempDir() + "/vapid.json"
	first, err := EnsureVAPIDKeys(path)
	require.NoError(t, err)
	second, err := EnsureVAPIDKeys(path)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey, second.PublicKey)
	assert.Equal(t, first.PrivateKey, second.PrivateKey)
}
