// Package atbat turns raw play-by-play rows into normalized plate appearances and walks
// each plate appearance's pitch sequence through the ball-strike count.
package atbat

import (
	"strings"

	"github.com/baseball-sim/strategy-engine/models"
)

// FilterSide restricts a table to the plays where team batted on the requested side.
// Tables already reduced to one side are returned unchanged.
func FilterSide(table models.PlayTable, team string, side models.Side) models.PlayTable {
	if !table.HasSide {
		return table
	}

	filtered := make([]models.Play, 0, len(table.Plays))
	for _, play := range table.Plays {
		if play.Side != side {
			continue
		}
		if team != "" && !playsIn(play, team, side) {
			continue
		}
		filtered = append(filtered, play)
	}

	return models.PlayTable{HasSide: false, Plays: filtered}
}

func playsIn(play models.Play, team string, side models.Side) bool {
	if side == models.Home {
		club := play.HomeTeam()
		return club == "" || club == team
	}
	club := play.VisitingTeam()
	return club == "" || club == team
}

// DedupeBatters drops a row when the next row in the same game has the same batter in the
// same inning. Those rows record runner events (steals, wild pitches) mid plate appearance;
// the later row carries the batter's own result.
func DedupeBatters(plays []models.Play) []models.Play {
	kept := make([]models.Play, 0, len(plays))
	for i, play := range plays {
		if i+1 < len(plays) {
			next := plays[i+1]
			if next.GameID == play.GameID && next.BatterID == play.BatterID && next.Inning == play.Inning {
				continue
			}
		}
		kept = append(kept, play)
	}
	return kept
}

// StripAnnotations removes pickoff, catcher and runner marks from a pitch string
func StripAnnotations(pitches string) string {
	return strings.Map(func(r rune) rune {
		if models.IsAnnotation(r) {
			return -1
		}
		return r
	}, pitches)
}

// endsWithoutBatter reports result codes that close a row without the batter finishing:
// a substitution before any pitch, a pickoff, or a caught stealing.
func endsWithoutBatter(event string) bool {
	return event == "NP" || strings.Contains(event, "PO") || strings.HasPrefix(event, "C")
}

// Normalize cleans a team's raw extract into the rows that represent completed plate appearances
func Normalize(table models.PlayTable, team string, side models.Side) []models.Play {
	sided := FilterSide(table, team, side)
	deduped := DedupeBatters(sided.Plays)

	cleaned := make([]models.Play, 0, len(deduped))
	for _, play := range deduped {
		play.Pitches = StripAnnotations(play.Pitches)
		if endsWithoutBatter(play.Event) {
			continue
		}
		cleaned = append(cleaned, play)
	}

	return cleaned
}

// EventCountHistogram counts batter events by the count recorded on the row, after the side
// filter and batter de-duplication. Rows whose recorded count is unknown are skipped.
func EventCountHistogram(table models.PlayTable, team string, side models.Side) [models.NumCounts]int {
	var histogram [models.NumCounts]int

	sided := FilterSide(table, team, side)
	for _, play := range DedupeBatters(sided.Plays) {
		count, err := models.ParseCount(play.Count)
		if err != nil {
			continue
		}
		histogram[count.Index()]++
	}

	return histogram
}
