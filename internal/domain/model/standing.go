package model

// UserStanding is one leaderboard row.
//
// For monthly standings Average is a mean of per-event averages and Samples
// counts events; for the overall standing Average is a pooled mean over all
// individual votes and Samples counts votes. The two computations diverge
// on purpose and are kept separate end to end.
type UserStanding struct {
	UserID  int64
	Average float64
	Samples int
}

// UserReport summarizes one user's received scores.
type UserReport struct {
	UserID         int64
	LastEventScore *float64 // per-event average in the most recent event with votes for the user
	MonthlyAverage *float64 // mean of per-event averages in the current calendar month
	OverallAverage *float64 // mean of per-event averages across all events
}
