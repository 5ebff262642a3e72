// Package strategy perturbs a team's per-count pitch outcomes to model swinging more or less
// often, and re-derives the pitch tallies such a hitting approach would produce.
package strategy

import (
	"math"

	"github.com/baseball-sim/strategy-engine/models"
	"github.com/baseball-sim/strategy-engine/team"
)

// SwingChange is the number of pitches at one count that move between taken pitches
// (B balls, C called strikes) and swings (S misses, X contact).
type SwingChange struct {
	BToX float64 `json:"b_to_x" yaml:"b_to_x"`
	BToS float64 `json:"b_to_s" yaml:"b_to_s"`
	CToX float64 `json:"c_to_x" yaml:"c_to_x"`
	CToS float64 `json:"c_to_s" yaml:"c_to_s"`
	XToB float64 `json:"x_to_b" yaml:"x_to_b"`
	XToC float64 `json:"x_to_c" yaml:"x_to_c"`
	SToB float64 `json:"s_to_b" yaml:"s_to_b"`
	SToC float64 `json:"s_to_c" yaml:"s_to_c"`
}

// IsZero reports whether no pitch changes category
func (c SwingChange) IsZero() bool {
	return c == SwingChange{}
}

// ChangeMatrix holds one SwingChange per count, in count index order
type ChangeMatrix [models.NumCounts]SwingChange

// Aggressive moves a fraction p of the count's pitches from taken to swung. The extra swings are
// split between the zones by the share of current swings each zone draws, then into contact and
// misses by the season contact rates. A zone short of taken pitches passes its excess to the other
// zone; hit-by-pitch balls are never converted.
func Aggressive(d team.CountDiscipline, p float64) SwingChange {
	swingRate := d.SwingRate()
	if p == 0 || swingRate == 0 {
		return SwingChange{}
	}

	extraB := p * d.Total * (1 - d.ZonePct) * d.OSwingPct / swingRate
	extraC := p * d.Total * d.ZonePct * d.ZSwingPct / swingRate

	// thin counts can solve to a negative zone share
	extraB = math.Max(extraB, 0)
	extraC = math.Max(extraC, 0)

	availB := math.Max(d.B-d.HBP, 0)
	availC := math.Max(d.C, 0)

	switch {
	case extraB > availB && extraC > availC:
		extraB, extraC = availB, availC
	case extraB > availB:
		extraC = math.Min(availC, extraC+extraB-availB)
		extraB = availB
	case extraC > availC:
		extraB = math.Min(availB, extraB+extraC-availC)
		extraC = availC
	}

	return SwingChange{
		BToX: extraB * d.OContactPct,
		BToS: extraB * (1 - d.OContactPct),
		CToX: extraC * d.ZContactPct,
		CToS: extraC * (1 - d.ZContactPct),
	}
}

// Patient moves a fraction p of the count's pitches from swung to taken. Newly taken pitches are
// split between the zones by the count's ball/called-strike mix and drawn from contact and misses
// by the season contact rates. Each conversion is bounded by the swings its zone recorded; when
// either side of a zone runs short, both sides of that zone shrink by the same factor so the
// miss/contact ratio the contact rate implies is kept. Foul bunts stay put.
func Patient(d team.CountDiscipline, p float64) SwingChange {
	taken := d.B + d.C
	if p == 0 || taken == 0 {
		return SwingChange{}
	}

	toB := p * d.Total * d.B / taken
	toC := p * d.Total * d.C / taken

	so, sz, xo, xz := swingInventory(d)

	var change SwingChange
	change.XToB, change.SToB = fit(toB*d.OContactPct, toB*(1-d.OContactPct), xo, so)
	change.XToC, change.SToC = fit(toC*d.ZContactPct, toC*(1-d.ZContactPct), xz, sz)
	return change
}

// fit scales a zone's contact and miss conversions down together until neither exceeds
// what the zone has available
func fit(contact, miss, contactAvail, missAvail float64) (float64, float64) {
	f := 1.0
	if contact > contactAvail {
		f = math.Min(f, contactAvail/contact)
	}
	if miss > missAvail {
		f = math.Min(f, missAvail/miss)
	}
	return contact * f, miss * f
}

// swingInventory bounds the zone split of swings by what the count actually recorded.
// Foul bunts are reserved out of in-zone contact.
func swingInventory(d team.CountDiscipline) (so, sz, xo, xz float64) {
	so = math.Min(math.Max(d.SO, 0), d.S)
	sz = math.Min(math.Max(d.SZ, 0), d.S-so)

	contact := math.Max(d.X-d.FoulBunt, 0)
	xo = math.Min(math.Max(d.XO, 0), contact)
	xz = math.Min(math.Max(d.XZ-d.FoulBunt, 0), contact-xo)
	return so, sz, xo, xz
}
