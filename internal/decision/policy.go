package decision

import (
	"fmt"

	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/utils"
)

// Decision is the final graded output of the policy.
type Decision struct {
	Action     entity.SignalAction
	Direction  int
	Confidence float64 // regime-adjusted and clamped
	Magnitude  float64 // expected move, percent
	Vetoed     bool    // true when the volume veto forced HOLD
}

// Decide applies the regime threshold table, the volume veto and the tiering
// rules to a score result.
//
// Order matters: the regime adjustment and clamp come first, then the
// tentative classification, then the unconditional volume veto, and only
// then tier promotion. A vetoed signal is HOLD and is never promoted.
func Decide(cfg EngineConfig, score *ScoreResult, regime RegimeAssessment, volumeTrend float64) (*Decision, error) {
	adjusted := score.Preliminary * regime.ConfidenceMultiplier
	if regime.StressCap > 0 && adjusted > regime.StressCap {
		adjusted = regime.StressCap
	}
	adjusted = utils.Clamp(adjusted, cfg.ConfidenceFloor, cfg.ConfidenceCeiling)

	th := cfg.ParamsFor(regime.Regime).Thresholds
	techScore := score.TechnicalScore

	action := entity.ActionHold
	switch {
	case adjusted > th.Buy && techScore > th.MinTechScore:
		action = entity.ActionBuy
	case adjusted < th.Sell && techScore < 100-th.MinTechScore:
		action = entity.ActionSell
	}

	// Volume veto: a buy into fading volume or a sell into surging volume is
	// overridden to HOLD regardless of confidence.
	vetoed := false
	if action.IsBuy() && volumeTrend < th.VolumeVetoLow {
		action = entity.ActionHold
		vetoed = true
	}
	if action.IsSell() && volumeTrend > th.VolumeVetoHigh {
		action = entity.ActionHold
		vetoed = true
	}

	// Tiering: promotion requires both a wider confidence margin and a
	// stronger technical reading.
	if action == entity.ActionBuy && adjusted > th.Buy+th.StrongMargin && techScore > th.StrongMinTechScore {
		action = entity.ActionStrongBuy
	}
	if action == entity.ActionSell && adjusted < th.Sell-th.StrongMargin && techScore < 100-th.StrongMinTechScore {
		action = entity.ActionStrongSell
	}

	decision := &Decision{
		Action:     action,
		Direction:  action.Direction(),
		Confidence: adjusted,
		Magnitude:  magnitude(cfg, action, techScore, adjusted),
		Vetoed:     vetoed,
	}

	if err := checkContract(decision); err != nil {
		return nil, err
	}
	return decision, nil
}

// magnitude maps technical conviction and adjusted confidence onto an
// expected move in percent, bounded to [0, MagnitudeMax]. HOLD carries no
// expected move.
func magnitude(cfg EngineConfig, action entity.SignalAction, techScore, adjusted float64) float64 {
	half := cfg.MagnitudeMax / 2
	switch {
	case action.IsBuy():
		return utils.Clamp((techScore/100.0)*half+adjusted*half, 0, cfg.MagnitudeMax)
	case action.IsSell():
		return utils.Clamp(((100-techScore)/100.0)*half+(1-adjusted)*half, 0, cfg.MagnitudeMax)
	default:
		return 0
	}
}

// checkContract asserts the sign-agreement invariant between action and
// direction. The direction is derived from the action, so a violation here
// is a programming error.
func checkContract(d *Decision) error {
	agrees := (d.Action.IsBuy() && d.Direction == 1) ||
		(d.Action.IsSell() && d.Direction == -1) ||
		(d.Action == entity.ActionHold && d.Direction == 0)
	if !agrees {
		return fmt.Errorf("%w: action=%s direction=%d", ErrContradiction, d.Action, d.Direction)
	}
	return nil
}
