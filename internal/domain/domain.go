package domain

import "fmt"

// Session is the authenticated context for one account, valid for a single
// check-in or points query. It is rebuilt from scratch on every cycle and
// never persisted.
type Session struct {
	Identity     string `json:"identity"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	UserID       string `json:"user_id"`
}

// PointsSnapshot is a point-in-time balance read, never cached.
type PointsSnapshot struct {
	TotalPoints int64 `json:"total_points"`
}

// CheckinResult is the outcome of a daily claim attempt.
type CheckinResult string

const (
	Claimed        CheckinResult = "claimed"
	AlreadyClaimed CheckinResult = "already_claimed"
)

// Outcome is the per-account record produced by one pass. Exactly one
// Outcome exists per configured account, whether the account succeeded
// or failed.
type Outcome struct {
	Identity string `json:"identity"`
	Result   string `json:"result,omitempty"`
	Err      error  `json:"-"`
}

// MaskIdentity shortens an address for logs and console output. The full
// identity (and the credential behind it) is never surfaced.
func MaskIdentity(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return fmt.Sprintf("%s…%s", addr[:6], addr[len(addr)-4:])
}
