// Package types contains the wire types shared by the HTTP API and its clients.
package types

import "github.com/okian/coachfit/internal/domain/model"

// TraineeRequest is the JSON body of the recommendation endpoints. Pointer
// fields distinguish an absent key from a zero value. Age decodes as any JSON
// number so 28.0 is accepted; fractional years fail validation.
type TraineeRequest struct {
	Age        *float64 `json:"age"         validate:"required,whole"`
	Height     *float64 `json:"height"      validate:"required"`
	Weight     *float64 `json:"weight"      validate:"required"`
	BodyFat    *float64 `json:"body_fat"    validate:"required"`
	BodyMuscle *float64 `json:"body_muscle" validate:"required"`
	Goals      *string  `json:"goals"       validate:"required"`
}

// Profile converts a validated request to the domain profile.
// Callers must validate first; nil fields read as zero.
func (r TraineeRequest) Profile() model.TraineeProfile {
	var p model.TraineeProfile
	if r.Age != nil {
		p.Age = int(*r.Age)
	}
	if r.Height != nil {
		p.Height = *r.Height
	}
	if r.Weight != nil {
		p.Weight = *r.Weight
	}
	if r.BodyFat != nil {
		p.BodyFat = *r.BodyFat
	}
	if r.BodyMuscle != nil {
		p.BodyMuscle = *r.BodyMuscle
	}
	if r.Goals != nil {
		p.Goals = *r.Goals
	}
	return p
}

// RecommendationResponse carries the best coach's skill tags.
type RecommendationResponse struct {
	RecommendedExperiences []string `json:"recommended_experiences"`
}

// RankedCoach is one entry of the ranked endpoint.
type RankedCoach struct {
	Rank             int     `json:"rank"`
	CoachID          string  `json:"coach_id"`
	CoachName        string  `json:"coach_name"`
	CoachRating      float64 `json:"coach_rating"`
	CoachExperiences string  `json:"coach_experiences"`
	PredictedScore   float64 `json:"predicted_score"`
}

// NewRankedCoach maps a scored candidate to its wire form.
func NewRankedCoach(sc model.ScoredCandidate) RankedCoach {
	return RankedCoach{
		Rank:             sc.Rank,
		CoachID:          sc.ID,
		CoachName:        sc.Name,
		CoachRating:      sc.Rating,
		CoachExperiences: sc.Experiences,
		PredictedScore:   sc.Score,
	}
}

// BatchRequest recommends for several trainees at once.
type BatchRequest struct {
	Trainees []TraineeRequest `json:"trainees" validate:"required,min=1,dive"`
}

// BatchResponse holds one result per trainee, in request order.
type BatchResponse struct {
	Results []RecommendationResponse `json:"results"`
}

// CoachRecord is a roster entry as listed by GET /coaches.
type CoachRecord struct {
	CoachID          string  `json:"coach_id"`
	CoachName        string  `json:"coach_name"`
	CoachRating      float64 `json:"coach_rating"`
	CoachExperiences string  `json:"coach_experiences"`
}

// NewCoachRecord maps a roster candidate to its wire form.
func NewCoachRecord(c model.CoachCandidate) CoachRecord {
	return CoachRecord{
		CoachID:          c.ID,
		CoachName:        c.Name,
		CoachRating:      c.Rating,
		CoachExperiences: c.Experiences,
	}
}

// SchemaInfo describes the loaded trained artifact.
type SchemaInfo struct {
	Model          string   `json:"model"`
	FeatureColumns []string `json:"feature_columns"`
	SkillList      []string `json:"skill_list"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
