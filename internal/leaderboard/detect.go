package leaderboard

// Detect compares two snapshots of the same leaderboard and returns the
// changes as an ordered event list: all NewStar events first (member id
// ascending, day ascending, part ascending), then RankChange, then
// ScoreChange, then NewMember.
//
// A nil previous snapshot means this is the first observation; it only
// establishes the baseline and yields no events. Members present only
// in the previous snapshot are ignored. A member that produced a
// NewStar in this diff gets no separate ScoreChange: the star already
// accounts for the score movement.
//
// Detect is pure: no I/O, no mutation of either snapshot.
func Detect(previous, current *Snapshot) []Event {
	if previous == nil {
		return nil
	}

	var (
		stars      []Event
		ranks      []Event
		scores     []Event
		newMembers []Event
	)
	starred := make(map[string]bool)

	for _, id := range current.MemberIDs() {
		curr := current.Members[id]
		prev, existed := previous.Members[id]
		if !existed {
			newMembers = append(newMembers, NewMember{
				MemberID:   id,
				MemberName: curr.Name,
			})
			continue
		}

		for day := FirstDay; day <= LastDay; day++ {
			currParts := curr.Days[day]
			prevParts := prev.Days[day]

			if currParts.Has(1) && !prevParts.Has(1) {
				stars = append(stars, NewStar{
					MemberID:     id,
					MemberName:   curr.Name,
					Day:          day,
					Part:         1,
					CompletesDay: currParts.Has(2),
				})
				starred[id] = true
			}
			if currParts.Has(2) && !prevParts.Has(2) {
				stars = append(stars, NewStar{
					MemberID:     id,
					MemberName:   curr.Name,
					Day:          day,
					Part:         2,
					CompletesDay: true,
				})
				starred[id] = true
			}
		}

		if curr.Rank != prev.Rank {
			ranks = append(ranks, RankChange{
				MemberID:   id,
				MemberName: curr.Name,
				OldRank:    prev.Rank,
				NewRank:    curr.Rank,
			})
		}

		if curr.Score != prev.Score && !starred[id] {
			scores = append(scores, ScoreChange{
				MemberID:   id,
				MemberName: curr.Name,
				OldScore:   prev.Score,
				NewScore:   curr.Score,
			})
		}
	}

	events := make([]Event, 0, len(stars)+len(ranks)+len(scores)+len(newMembers))
	events = append(events, stars...)
	events = append(events, ranks...)
	events = append(events, scores...)
	events = append(events, newMembers...)
	if len(events) == 0 {
		return nil
	}
	return events
}
