package taskname

// Asynq task type names. The enqueuer and the worker both import these
// so a rename can never strand queued tasks on one side.
const (
	// Loyalty tasks
	LoyaltyNotify         = "loyalty:notify"
	LoyaltyRefreshBalance = "loyalty:refresh_balance"
	LoyaltyBalanceSweep   = "loyalty:balance:sweep"
)
