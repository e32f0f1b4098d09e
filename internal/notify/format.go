package notify

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/leaderboard"
)

// messageLimit is Telegram's per-message character cap.
const messageLimit = 4096

// FormatChanges renders an ordered event list into one or more chat
// messages, grouped by event kind. Score-change suppression for
// members with a star event already happened in the detector, so every
// event received here is rendered.
func FormatChanges(events []leaderboard.Event) []string {
	if len(events) == 0 {
		return nil
	}

	var stars, ranks, scores, members []string
	for _, e := range events {
		switch ev := e.(type) {
		case leaderboard.NewStar:
			stars = append(stars, formatNewStar(ev))
		case leaderboard.RankChange:
			ranks = append(ranks, formatRankChange(ev))
		case leaderboard.ScoreChange:
			scores = append(scores, formatScoreChange(ev))
		case leaderboard.NewMember:
			members = append(members, fmt.Sprintf("  • %s", html.EscapeString(ev.MemberName)))
		}
	}

	lines := []string{"📊 Leaderboard Update", ""}
	for _, section := range []struct {
		header  string
		entries []string
	}{
		{"⭐ New Stars:", stars},
		{"📈 Rank Changes:", ranks},
		{"💰 Score Changes:", scores},
		{"👥 New Members:", members},
	} {
		if len(section.entries) == 0 {
			continue
		}
		lines = append(lines, section.header)
		lines = append(lines, section.entries...)
		lines = append(lines, "")
	}

	return splitMessage(strings.TrimSpace(strings.Join(lines, "\n")))
}

func formatNewStar(e leaderboard.NewStar) string {
	if e.CompletesDay && e.Part == 2 {
		return fmt.Sprintf("  🌟 %s - Day %d (Complete!)", html.EscapeString(e.MemberName), e.Day)
	}
	return fmt.Sprintf("  ⭐ %s - Day %d Part %d", html.EscapeString(e.MemberName), e.Day, e.Part)
}

func formatRankChange(e leaderboard.RankChange) string {
	arrow := "↓"
	if e.Delta() < 0 {
		arrow = "↑"
	}
	delta := e.Delta()
	if delta < 0 {
		delta = -delta
	}
	return fmt.Sprintf("  %s: #%d → #%d (%s %d)", html.EscapeString(e.MemberName), e.OldRank, e.NewRank, arrow, delta)
}

func formatScoreChange(e leaderboard.ScoreChange) string {
	return fmt.Sprintf("  %s: %d → %d (%+d)", html.EscapeString(e.MemberName), e.OldScore, e.NewScore, e.Delta())
}

// FormatRankings renders the current standings: members with at least
// one star, highest score first, with competition ranks.
func FormatRankings(snap *leaderboard.Snapshot, year int) []string {
	lines := []string{fmt.Sprintf("🏆 Leaderboard Rankings (%d)", year), ""}

	type entry struct {
		name  string
		score int
		stars int
	}
	var entries []entry
	for _, m := range snap.Members {
		if m.Stars >= 1 {
			entries = append(entries, entry{name: m.Name, score: m.Score, stars: m.Stars})
		}
	}

	if len(entries) == 0 {
		lines = append(lines, "No members have earned any stars yet.")
		return splitMessage(strings.Join(lines, "\n"))
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		if entries[i].stars != entries[j].stars {
			return entries[i].stars > entries[j].stars
		}
		return entries[i].name < entries[j].name
	})

	for i, e := range entries {
		rank := 1
		for j := 0; j < i; j++ {
			if entries[j].score > e.score {
				rank++
			}
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %d points (%d⭐)", rank, html.EscapeString(e.name), e.score, e.stars))
	}

	return splitMessage(strings.Join(lines, "\n"))
}

// splitMessage breaks a long message at line boundaries so every chunk
// fits Telegram's limit.
func splitMessage(message string) []string {
	if len(message) <= messageLimit {
		return []string{message}
	}

	var messages []string
	var current strings.Builder
	for _, line := range strings.Split(message, "\n") {
		if current.Len()+len(line)+1 > messageLimit {
			messages = append(messages, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		messages = append(messages, current.String())
	}
	return messages
}
