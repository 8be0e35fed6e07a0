// internal/domain/order/stage.go
package order

// Stage is one step in the fixed production sequence. The sequence is
// totally ordered and defined at compile time; "previous" and "next"
// derive from position in stageSequence, never from string comparison.
type Stage string

const (
	StagePending      Stage = "pending"
	StageCutting      Stage = "cutting"
	StageShaping      Stage = "shaping"
	StageBending      Stage = "bending"
	StageWeldingInner Stage = "welding_inner"
	StageWeldingOuter Stage = "welding_outer"
	StageGrinding     Stage = "grinding"
	StageFinishing    Stage = "finishing"
	StagePainting     Stage = "painting"
	StageCompleted    Stage = "completed"
)

// stageSequence defines the total order of stages.
var stageSequence = []Stage{
	StagePending,
	StageCutting,
	StageShaping,
	StageBending,
	StageWeldingInner,
	StageWeldingOuter,
	StageGrinding,
	StageFinishing,
	StagePainting,
	StageCompleted,
}

var stageIndex = func() map[Stage]int {
	m := make(map[Stage]int, len(stageSequence))
	for i, s := range stageSequence {
		m[s] = i
	}
	return m
}()

// Stages returns the full ordered stage list.
func Stages() []Stage {
	out := make([]Stage, len(stageSequence))
	copy(out, stageSequence)
	return out
}

// IsValid reports whether s is a member of the stage enumeration.
func (s Stage) IsValid() bool {
	_, ok := stageIndex[s]
	return ok
}

// IsFirstProduction reports whether s is the first stage at which
// production sessions run (the stage right after Pending). Sessions at
// this stage have no upstream output ceiling.
func (s Stage) IsFirstProduction() bool {
	idx, ok := stageIndex[s]
	return ok && idx == 1
}

// IsLastProduction reports whether s is the final stage at which
// production sessions run (the stage right before Completed).
func (s Stage) IsLastProduction() bool {
	idx, ok := stageIndex[s]
	return ok && idx == len(stageSequence)-2
}

// PreviousOf returns the stage immediately before s. The second return
// value is false when s has no previous stage. Calling it with an
// unknown stage is a programmer error and also returns false.
func PreviousOf(s Stage) (Stage, bool) {
	idx, ok := stageIndex[s]
	if !ok || idx == 0 {
		return "", false
	}
	return stageSequence[idx-1], true
}

// NextOrderStatus maps a completed stage to the order status the order
// should carry afterwards: Completed once the final production stage
// closes, InProduction for every earlier stage.
func NextOrderStatus(s Stage) OrderStatus {
	if s.IsLastProduction() || s == StageCompleted {
		return OrderStatusCompleted
	}
	return OrderStatusInProduction
}

// StageBefore reports whether a comes strictly before b in the sequence.
func StageBefore(a, b Stage) bool {
	ai, aok := stageIndex[a]
	bi, bok := stageIndex[b]
	return aok && bok && ai < bi
}
