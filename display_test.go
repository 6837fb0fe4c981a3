package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TxnLab/lpstaking/internal/lib/events"
	"github.com/TxnLab/lpstaking/internal/lib/pool"
	"github.com/TxnLab/lpstaking/internal/lib/position"
)

func TestDisplayPool(t *testing.T) {
	var buf bytes.Buffer
	displayPool(&buf, &pool.Pool{ID: "main", RewardRate: 100, RewardMultiplier: 1, AccRewardPerShare: 7, TotalStaked: 1500000, LastUpdateTime: 60}, 6)
	out := buf.String()
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "1.5")
	assert.Contains(t, out, "1970-01-01T00:01:00Z")
}

func TestDisplayPositions(t *testing.T) {
	var buf bytes.Buffer
	displayPositions(&buf, []*position.Position{
		{Owner: "alice", Amount: 1000, LockupEndTime: 100},
		{Owner: "bob"},
	}, 0, 50)
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "alice")
	assert.Contains(t, string(lines[1]), "true")
	assert.Contains(t, string(lines[2]), "false")
}

func TestDisplayPosition(t *testing.T) {
	var buf bytes.Buffer
	displayPosition(&buf, &position.Position{Owner: "alice", Amount: 250, RewardDebt: 5}, 12, 2)
	out := buf.String()
	assert.Contains(t, out, "2.5")
	assert.Contains(t, out, "0.12")
	assert.Contains(t, out, "0.05")
}

func TestDisplayEvents(t *testing.T) {
	var buf bytes.Buffer
	displayEvents(&buf, []events.Record{
		{Seq: 1, Kind: events.KindStake, Pool: "main", Owner: "alice", Time: 0, Data: json.RawMessage(`{"amount":1000}`)},
	})
	assert.Contains(t, buf.String(), `{"amount":1000}`)
	assert.Contains(t, buf.String(), "stake")
}

func TestDurationSecs(t *testing.T) {
	assert.Equal(t, int64(90), durationSecs(90*time.Second+500*time.Millisecond))
}
