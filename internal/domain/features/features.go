// Package features turns a trainee and a coach roster into model-ready rows
// ordered exactly as the trained schema expects.
package features

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/coachfit/internal/domain/model"
)

// Fixed column names produced for every pair.
const (
	ColAge                  = "trainee_age"
	ColHeight               = "trainee_height"
	ColWeight               = "trainee_weight"
	ColBodyFat              = "trainee_body_fat"
	ColBodyMuscle           = "trainee_body_muscle"
	ColBMI                  = "trainee_bmi"
	ColFitnessLevel         = "fitness_level"
	ColGoalCount            = "trainee_goal_count"
	ColCoachSkillCount      = "coach_skill_count"
	ColMatchingSkillsCount  = "matching_skills_count"
	ColMatchPercentage      = "match_percentage"
	ColAgeGroupMatch        = "age_group_match"
	ColWeightLossSpecialist = "weight_loss_specialist"
	ColMuscleGainSpecialist = "muscle_gain_specialist"
)

// Per-skill column prefixes; the suffix is the skill tag with spaces replaced
// by underscores.
const (
	PrefixTraineeWants = "trainee_wants_"
	PrefixCoachHas     = "coach_has_"
	PrefixSkillMatch   = "skill_match_"
)

// Heuristic thresholds.
const (
	youngAgeLimit        = 30
	seniorAgeFloor       = 45
	weightLossFatFloor   = 25
	muscleGainMuscleCeil = 35
)

var (
	youngFocus      = []string{"hiit", "crossfit"}
	seniorFocus     = []string{"flexibility", "injury prevention"}
	weightLossFocus = []string{"weight loss", "fat loss", "cardio"}
	muscleGainFocus = []string{"muscle gain", "bodybuilding", "strength"}
)

// Columns is the ordered column list a row is projected onto.
type Columns interface {
	NumColumns() int
	Column(i int) string
	SkillList() []string
}

// Row is one feature vector, ordered by the schema's columns.
type Row struct {
	columns Columns
	Values  []float64
}

// Value returns the value of the named column and whether the column exists.
func (r Row) Value(name string) (float64, bool) {
	for i := 0; i < r.columns.NumColumns(); i++ {
		if r.columns.Column(i) == name {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Pair keeps a candidate and its row together so that order can never drift.
type Pair struct {
	Candidate model.CoachCandidate
	Row       Row
}

// SkillColumn normalizes a skill tag into a column suffix.
func SkillColumn(prefix, skill string) string {
	return prefix + strings.ReplaceAll(skill, " ", "_")
}

// ValidateTrainee rejects profiles that would produce undefined features.
func ValidateTrainee(t model.TraineeProfile) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"height", t.Height},
		{"weight", t.Weight},
		{"body_fat", t.BodyFat},
		{"body_muscle", t.BodyMuscle},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, f.name)
		}
	}
	if t.Height <= 0 {
		return fmt.Errorf("%w: height must be positive, got %v", ErrInvalidInput, t.Height)
	}
	return nil
}

// Build derives one row per coach, in roster order. Skill tags are matched
// case-sensitively as substrings of the trimmed free text; the exact-token
// intersection behind matching_skills_count compares untrimmed split tags.
func Build(trainee model.TraineeProfile, coaches []model.CoachCandidate, cols Columns) ([]Pair, error) {
	if err := ValidateTrainee(trainee); err != nil {
		return nil, err
	}

	skills := cols.SkillList()
	base := traineeFeatures(trainee)
	goalTags := tagSet(trainee.GoalTags())
	goalCount := float64(strings.Count(trainee.Goals, model.SkillSeparator) + 1)

	pairs := make([]Pair, len(coaches))
	for i, c := range coaches {
		derived := make(map[string]float64, len(base)+3*len(skills)+7)
		for k, v := range base {
			derived[k] = v
		}

		for _, skill := range skills {
			wants := indicator(containsText(trainee.Goals, skill))
			has := indicator(containsText(c.Experiences, skill))
			derived[SkillColumn(PrefixTraineeWants, skill)] = wants
			derived[SkillColumn(PrefixCoachHas, skill)] = has
			derived[SkillColumn(PrefixSkillMatch, skill)] = wants * has
		}

		matching := float64(intersectionSize(goalTags, c.Skills()))
		derived[ColGoalCount] = goalCount
		derived[ColCoachSkillCount] = float64(strings.Count(c.Experiences, model.SkillSeparator) + 1)
		derived[ColMatchingSkillsCount] = matching
		derived[ColMatchPercentage] = 0
		if goalCount > 0 {
			derived[ColMatchPercentage] = matching / goalCount
		}

		derived[ColAgeGroupMatch] = indicator(
			(trainee.Age < youngAgeLimit && containsAny(c.Experiences, youngFocus)) ||
				(trainee.Age >= seniorAgeFloor && containsAny(c.Experiences, seniorFocus)))
		derived[ColWeightLossSpecialist] = indicator(
			containsAny(c.Experiences, weightLossFocus) && trainee.BodyFat > weightLossFatFloor)
		derived[ColMuscleGainSpecialist] = indicator(
			containsAny(c.Experiences, muscleGainFocus) && trainee.BodyMuscle < muscleGainMuscleCeil)

		pairs[i] = Pair{Candidate: c, Row: reconcile(derived, cols)}
	}
	return pairs, nil
}

// Rows extracts the value matrix in pair order.
func Rows(pairs []Pair) [][]float64 {
	rows := make([][]float64, len(pairs))
	for i, p := range pairs {
		rows[i] = p.Row.Values
	}
	return rows
}

func traineeFeatures(t model.TraineeProfile) map[string]float64 {
	heightM := t.Height / 100
	return map[string]float64{
		ColAge:          float64(t.Age),
		ColHeight:       t.Height,
		ColWeight:       t.Weight,
		ColBodyFat:      t.BodyFat,
		ColBodyMuscle:   t.BodyMuscle,
		ColBMI:          t.Weight / (heightM * heightM),
		ColFitnessLevel: t.BodyMuscle - t.BodyFat,
	}
}

// reconcile projects derived features onto the schema's column order.
// Columns that were not derived are zero; derived extras are dropped.
func reconcile(derived map[string]float64, cols Columns) Row {
	values := make([]float64, cols.NumColumns())
	for i := range values {
		values[i] = derived[cols.Column(i)]
	}
	return Row{columns: cols, Values: values}
}

// containsText is a case-sensitive substring test over trimmed text. Blank
// text never matches.
func containsText(text, needle string) bool {
	text = strings.TrimSpace(text)
	return text != "" && strings.Contains(text, needle)
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if containsText(text, n) {
			return true
		}
	}
	return false
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// intersectionSize counts distinct tags present in both lists. Tags compare
// exactly, so "" matches "" when both sides are empty.
func intersectionSize(goals map[string]struct{}, skills []string) int {
	seen := make(map[string]struct{}, len(skills))
	n := 0
	for _, s := range skills {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := goals[s]; ok {
			n++
		}
	}
	return n
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
