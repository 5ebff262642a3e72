package team

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/baseball-sim/strategy-engine/models"
)

// ErrInvalidContactRates is returned for contact rates outside (0,1) or rates that cannot
// separate in-zone from out-of-zone swings
var ErrInvalidContactRates = errors.New("invalid contact rates")

// contactEpsilon is the threshold under which the zone split of contact is treated as empty
const contactEpsilon = 1e-5

// CountDiscipline is the plate discipline estimate for one count.
// B holds taken balls (hit-by-pitch included), C called strikes, S swinging strikes and
// X contact (fouls, foul bunts and balls in play). SO/SZ and XO/XZ split S and X out of and
// inside the strike zone.
type CountDiscipline struct {
	Count    models.Count `json:"count"`
	B        float64      `json:"b"`
	C        float64      `json:"c"`
	S        float64      `json:"s"`
	X        float64      `json:"x"`
	HBP      float64      `json:"hbp"`
	FoulBunt float64      `json:"foul_bunt"`
	Total    float64      `json:"total"`

	SO float64 `json:"so"`
	SZ float64 `json:"sz"`
	XO float64 `json:"xo"`
	XZ float64 `json:"xz"`

	ZonePct     float64 `json:"zone_pct"`
	OSwingPct   float64 `json:"o_swing_pct"`
	ZSwingPct   float64 `json:"z_swing_pct"`
	OContactPct float64 `json:"o_contact_pct"`
	ZContactPct float64 `json:"z_contact_pct"`
}

// SwingRate is the share of pitches at this count that were swung at
func (d CountDiscipline) SwingRate() float64 {
	return ratio(d.S+d.X, d.Total)
}

// DisciplineProfile holds the estimate for every count, in count index order
type DisciplineProfile [models.NumCounts]CountDiscipline

// At returns the estimate for a count
func (p *DisciplineProfile) At(c models.Count) CountDiscipline {
	return p[c.Index()]
}

// Estimator splits swings into zone components using season contact rates
type Estimator struct {
	oContact float64
	zContact float64
	inverse  mat.Dense
}

// NewEstimator prepares the zone split for the given O-Contact% and Z-Contact% (fractions)
func NewEstimator(oContact, zContact float64) (*Estimator, error) {
	if oContact <= 0 || oContact >= 1 || zContact <= 0 || zContact >= 1 {
		return nil, fmt.Errorf("%w: o-contact %.3f, z-contact %.3f", ErrInvalidContactRates, oContact, zContact)
	}
	if oContact == zContact {
		return nil, fmt.Errorf("%w: o-contact equals z-contact", ErrInvalidContactRates)
	}

	// Rows: SO + SZ = S, and SO*o/(1-o) + SZ*z/(1-z) = X
	system := mat.NewDense(2, 2, []float64{
		1, 1,
		odds(oContact), odds(zContact),
	})

	e := &Estimator{oContact: oContact, zContact: zContact}
	if err := e.inverse.Inverse(system); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContactRates, err)
	}
	return e, nil
}

// OContact returns the season O-Contact% the estimator was built with
func (e *Estimator) OContact() float64 { return e.oContact }

// ZContact returns the season Z-Contact% the estimator was built with
func (e *Estimator) ZContact() float64 { return e.zContact }

// Estimate derives the plate discipline profile of every count in a pitch tally
func (e *Estimator) Estimate(tally *PitchTally) DisciplineProfile {
	var profile DisciplineProfile
	for _, count := range models.AllCounts() {
		profile[count.Index()] = e.EstimateCount(count, tally.At(count))
	}
	return profile
}

// EstimateCount derives the plate discipline estimate for one count's pitch outcomes
func (e *Estimator) EstimateCount(count models.Count, row [models.NumPitchOutcomes]float64) CountDiscipline {
	d := CountDiscipline{
		Count:       count,
		B:           row[models.Ball] + row[models.HitByPitch],
		C:           row[models.CalledStrike],
		S:           row[models.SwingingStrike],
		X:           row[models.BallInPlay] + row[models.Foul] + row[models.FoulBunt],
		HBP:         row[models.HitByPitch],
		FoulBunt:    row[models.FoulBunt],
		OContactPct: e.oContact,
		ZContactPct: e.zContact,
	}
	for _, n := range row {
		d.Total += n
	}

	var split mat.VecDense
	split.MulVec(&e.inverse, mat.NewVecDense(2, []float64{d.S, d.X}))
	d.SO, d.SZ = split.AtVec(0), split.AtVec(1)

	// Season-average contact rates can overshoot on thin counts
	if d.SO < 0 {
		d.SZ += d.SO
		d.SO = 0
	}

	d.XO = d.SO * odds(e.oContact)
	d.XZ = d.SZ * odds(e.zContact)
	if math.Abs(d.XO+d.XZ) < contactEpsilon {
		d.XZ = d.X
	}

	d.ZonePct = ratio(d.C+d.SZ+d.XZ, d.Total)
	d.OSwingPct = ratio(d.XO+d.SO, d.B+d.XO+d.SO)
	d.ZSwingPct = ratio(d.SZ+d.XZ, d.C+d.SZ+d.XZ)

	return d
}

func odds(p float64) float64 {
	return p / (1 - p)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
