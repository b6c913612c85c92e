package models

import "time"

// EndpointClass groups routes that share one budget per client address.
type EndpointClass string

const (
	// ClassAuth covers /auth/register and /auth/login.
	ClassAuth EndpointClass = "auth"
	// ClassIntake covers submissions open to anonymous callers.
	ClassIntake EndpointClass = "intake"
)

// Key builds the bucket key for one client in one class.
func Key(class EndpointClass, ip string) string {
	return "ratelimit:" + string(class) + ":" + ip
}

// RateLimitResult describes the bucket after a check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
}

// RateLimitExceededResponse is the API response when a bucket is full.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
