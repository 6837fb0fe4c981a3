package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type collectSink struct {
	sync.Mutex
	events []Event
}

func (c *collectSink) Emit(_ context.Context, ev Event) error {
	c.Lock()
	defer c.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func TestEmitterFansOut(t *testing.T) {
	var (
		a, b   collectSink
		failed = SinkFunc(func(context.Context, Event) error { return errors.New("sink down") })
	)
	e := NewEmitter(discardLogger(), &a, failed, &b)

	ev := Stake{Header: Header{Pool: "main", Time: 10}, User: "alice", Amount: 5, LockupPeriod: 60}
	e.Emit(context.Background(), ev)

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, ev, a.events[0])
	assert.Equal(t, ev, b.events[0])
}

func TestNilEmitter(t *testing.T) {
	var e *Emitter
	assert.NotPanics(t, func() {
		e.Emit(context.Background(), UpdatePool{Header: Header{Pool: "main"}})
	})
}

func TestEventIdentity(t *testing.T) {
	testCases := []struct {
		ev    Event
		kind  Kind
		owner string
	}{
		{Initialize{Header: Header{Pool: "p"}, RewardRate: 1, RewardMultiplier: 2}, KindInitialize, ""},
		{Stake{Header: Header{Pool: "p"}, User: "a"}, KindStake, "a"},
		{Unstake{Header: Header{Pool: "p"}, User: "b"}, KindUnstake, "b"},
		{ClaimRewards{Header: Header{Pool: "p"}, User: "c"}, KindClaimRewards, "c"},
		{UpdatePool{Header: Header{Pool: "p"}}, KindUpdatePool, ""},
		{SetRewardRate{Header: Header{Pool: "p"}}, KindSetRewardRate, ""},
		{SetRewardMultiplier{Header: Header{Pool: "p"}}, KindSetRewardMultiplier, ""},
	}
	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.ev.Kind())
			assert.Equal(t, tc.owner, tc.ev.Owner())
			assert.Equal(t, "p", tc.ev.Meta().Pool)
		})
	}
}

func TestSQLSink(t *testing.T) {
	sink, err := NewMemSQLSink()
	require.NoError(t, err)
	defer sink.Close()
	assert.NotEmpty(t, sink.SQLiteVersion())

	ctx := context.Background()
	require.NoError(t, sink.Emit(ctx, Initialize{Header: Header{Pool: "main", Time: 1}, RewardRate: 100, RewardMultiplier: 1}))
	require.NoError(t, sink.Emit(ctx, Stake{Header: Header{Pool: "main", Time: 2}, User: "alice", Amount: 1000, LockupPeriod: 60}))
	require.NoError(t, sink.Emit(ctx, Stake{Header: Header{Pool: "main", Time: 3}, User: "bob", Amount: 5, LockupPeriod: 0}))
	require.NoError(t, sink.Emit(ctx, Stake{Header: Header{Pool: "other", Time: 4}, User: "alice", Amount: 7}))

	all, err := sink.Query(ctx, "main", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bob", all[0].Owner)
	assert.Equal(t, KindInitialize, all[2].Kind)

	mine, err := sink.Query(ctx, "main", "alice", 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, KindStake, mine[0].Kind)
	assert.Equal(t, int64(2), mine[0].Time)

	var decoded Stake
	require.NoError(t, json.Unmarshal(mine[0].Data, &decoded))
	assert.Equal(t, uint64(1000), decoded.Amount)
	assert.Equal(t, int64(60), decoded.LockupPeriod)

	limited, err := sink.Query(ctx, "main", "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
