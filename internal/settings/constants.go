package settings

// DB config keys and defaults for the economy settings.
const (
	// BaseSpinRewardKey is the flat coin reward credited on every quota-consuming spin.
	BaseSpinRewardKey = "BASE_SPIN_REWARD"
	// FirstSpinBonusKey is the extra coin bonus on the day's first spin.
	FirstSpinBonusKey = "FIRST_SPIN_BONUS"
	// VoteRewardKey is the coin reward credited per vote.
	VoteRewardKey = "VOTE_REWARD"
	// PartnerSharePercentKey is the revenue-share percentage credited to the
	// machine operator's wallet on store purchases.
	PartnerSharePercentKey = "PARTNER_SHARE_PERCENT"
	// PackSweepIntervalSecondsKey controls the pack-expiry sweep interval in seconds.
	PackSweepIntervalSecondsKey = "PACK_SWEEP_INTERVAL_SECONDS"

	// DefaultBaseSpinReward is the fallback base spin reward.
	DefaultBaseSpinReward = 2
	// DefaultFirstSpinBonus is the fallback first-spin-of-day bonus.
	DefaultFirstSpinBonus = 5
	// DefaultVoteReward is the fallback vote reward.
	DefaultVoteReward = 5
	// DefaultPartnerSharePercent is the fallback revenue-share percentage.
	DefaultPartnerSharePercent = 10
	// DefaultPackSweepIntervalSeconds is the fallback sweep interval (seconds).
	DefaultPackSweepIntervalSeconds = 3600
)
