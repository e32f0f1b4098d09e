package aoc

import "errors"

// Fetch failure taxonomy. ErrUnauthorized is the only kind a polling
// loop treats as fatal for its task; everything else retries on the
// normal poll cadence.
var (
	ErrUnauthorized = errors.New("authentication failed, session cookie invalid or expired")
	ErrNotFound     = errors.New("leaderboard not found")
	ErrRateLimited  = errors.New("rate limited by adventofcode.com")
	ErrServer       = errors.New("adventofcode.com server error")
	ErrTimeout      = errors.New("request timed out")
	ErrMalformed    = errors.New("malformed leaderboard response")
)
