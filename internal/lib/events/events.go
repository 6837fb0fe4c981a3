// Package events carries the structured notifications emitted after each successful staking operation.
package events

type Kind string

const (
	KindInitialize          Kind = "initialize"
	KindStake               Kind = "stake"
	KindUnstake             Kind = "unstake"
	KindClaimRewards        Kind = "claim_rewards"
	KindUpdatePool          Kind = "update_pool"
	KindSetRewardRate       Kind = "set_reward_rate"
	KindSetRewardMultiplier Kind = "set_reward_multiplier"
)

type Event interface {
	Kind() Kind
	Meta() Header
	// Owner returns the affected depositor, or "" for pool level events.
	Owner() string
}

// Header is common to every event.
type Header struct {
	Pool string `json:"pool"`
	Time int64  `json:"time"`
}

func (h Header) Meta() Header { return h }

type Initialize struct {
	Header
	RewardRate       uint64 `json:"rewardRate"`
	RewardMultiplier uint64 `json:"rewardMultiplier"`
}

func (Initialize) Kind() Kind { return KindInitialize }
func (Initialize) Owner() string { return "" }

type Stake struct {
	Header
	User         string `json:"user"`
	Amount       uint64 `json:"amount"`
	LockupPeriod int64  `json:"lockupPeriod"`
}

func (Stake) Kind() Kind { return KindStake }
func (e Stake) Owner() string { return e.User }

type Unstake struct {
	Header
	User   string `json:"user"`
	Amount uint64 `json:"amount"`
}

func (Unstake) Kind() Kind { return KindUnstake }
func (e Unstake) Owner() string { return e.User }

type ClaimRewards struct {
	Header
	User    string `json:"user"`
	Rewards uint64 `json:"rewards"`
}

func (ClaimRewards) Kind() Kind { return KindClaimRewards }
func (e ClaimRewards) Owner() string { return e.User }

type UpdatePool struct {
	Header
	AccRewardPerShare uint64 `json:"accumulatedRewardPerShare"`
}

func (UpdatePool) Kind() Kind { return KindUpdatePool }
func (UpdatePool) Owner() string { return "" }

type SetRewardRate struct {
	Header
	NewRate uint64 `json:"newRate"`
}

func (SetRewardRate) Kind() Kind { return KindSetRewardRate }
func (SetRewardRate) Owner() string { return "" }

type SetRewardMultiplier struct {
	Header
	NewMultiplier uint64 `json:"newMultiplier"`
}

func (SetRewardMultiplier) Kind() Kind { return KindSetRewardMultiplier }
func (SetRewardMultiplier) Owner() string { return "" }
