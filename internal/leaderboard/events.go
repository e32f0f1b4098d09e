package leaderboard

import "fmt"

// Event is one detected leaderboard change. The concrete types are
// NewStar, RankChange, ScoreChange and NewMember.
type Event interface {
	fmt.Stringer
	event()
}

// NewStar reports a puzzle part newly present in the current snapshot.
type NewStar struct {
	MemberID   string
	MemberName string
	Day        int
	Part       int
	// CompletesDay is true when this star finishes the day: always for
	// part 2, and for part 1 when part 2 is already present in the
	// current snapshot (both parts appeared between two polls).
	CompletesDay bool
}

func (e NewStar) event() {}

func (e NewStar) String() string {
	return fmt.Sprintf("star %s day %d part %d", e.MemberID, e.Day, e.Part)
}

// RankChange reports a rank difference for a member present in both
// snapshots.
type RankChange struct {
	MemberID   string
	MemberName string
	OldRank    int
	NewRank    int
}

func (e RankChange) event() {}

// Delta is the rank movement; negative means the member moved up.
func (e RankChange) Delta() int { return e.NewRank - e.OldRank }

func (e RankChange) String() string {
	return fmt.Sprintf("rank %s %d->%d", e.MemberID, e.OldRank, e.NewRank)
}

// ScoreChange reports a score difference for a member present in both
// snapshots.
type ScoreChange struct {
	MemberID   string
	MemberName string
	OldScore   int
	NewScore   int
}

func (e ScoreChange) event() {}

// Delta is the score movement.
func (e ScoreChange) Delta() int { return e.NewScore - e.OldScore }

func (e ScoreChange) String() string {
	return fmt.Sprintf("score %s %d->%d", e.MemberID, e.OldScore, e.NewScore)
}

// NewMember reports a member present in the current snapshot but not
// the previous one.
type NewMember struct {
	MemberID   string
	MemberName string
}

func (e NewMember) event() {}

func (e NewMember) String() string {
	return fmt.Sprintf("new member %s", e.MemberID)
}
