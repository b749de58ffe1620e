// Package model contains domain models passed between layers.
package model

import "strings"

// SkillSeparator joins skill tags in goals and experience strings.
const SkillSeparator = "|"

// TraineeProfile is the person seeking a coach.
type TraineeProfile struct {
	Age        int
	Height     float64 // centimetres
	Weight     float64 // kilograms
	BodyFat    float64 // percent
	BodyMuscle float64 // percent
	Goals      string  // skill tags joined by "|"
}

// GoalTags splits Goals on the separator. Tags are not trimmed or folded.
func (t TraineeProfile) GoalTags() []string {
	return strings.Split(t.Goals, SkillSeparator)
}

// CoachCandidate is one roster entry under consideration.
type CoachCandidate struct {
	ID          string
	Name        string
	Rating      float64
	Experiences string // skill tags joined by "|"
}

// Skills splits Experiences on the separator. An empty string yields [""].
func (c CoachCandidate) Skills() []string {
	return strings.Split(c.Experiences, SkillSeparator)
}

// ScoredCandidate is a candidate with its predicted suitability.
type ScoredCandidate struct {
	CoachCandidate
	Score float64 // probability of the positive class, in [0, 1]
	Rank  int     // 1-based position after sorting
}
