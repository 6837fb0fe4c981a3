package staking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promTotalStaked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "lpstaking",
		Name:      "staked_total",
	}, []string{"pool"})
	promAccRewardPerShare = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "lpstaking",
		Name:      "acc_reward_per_share",
	}, []string{"pool"})
	promRewardRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "lpstaking",
		Name:      "reward_rate",
	}, []string{"pool"})
	promRewardMultiplier = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "lpstaking",
		Name:      "reward_multiplier",
	}, []string{"pool"})
	promOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "lpstaking",
		Name:      "operations_total",
		Help:      "Lifecycle operations by kind and result",
	}, []string{"pool", "op", "result"})
	promTransferred = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "lpstaking",
		Name:      "transferred_total",
		Help:      "Amount moved through the ledger by asset and direction",
	}, []string{"pool", "asset", "direction"})
)
