package loadcheck

import (
	"crypto/rand"
	"math"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const randomFloatDivisor = 1000000

// goalPool is sampled for each trainee's goals.
var goalPool = []string{
	"weight loss", "fat loss", "muscle gain", "strength", "cardio",
	"flexibility", "injury prevention", "nutrition", "hiit", "yoga",
}

// Profile ranges.
const (
	minAge, ageSpan           = 18, 50
	minHeight, heightSpan     = 150.0, 45.0
	minBMI, bmiSpan           = 18.0, 16.0
	minBodyFat, bodyFatSpan   = 8.0, 30.0
	minMuscle, muscleSpan     = 25.0, 25.0
	maxGoals                  = 3
	measureRoundingMultiplier = 10
	centimetresPerMetre       = 100
)

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func round(v, mult float64) float64 {
	return math.Round(v*mult) / mult
}

// GenerateTrainees creates n plausible trainee profiles. Weight is derived
// from a sampled BMI so the body stays realistic.
func GenerateTrainees(n int) []Trainee {
	out := make([]Trainee, n)
	for i := range out {
		out[i] = generateTrainee()
	}
	return out
}

func generateTrainee() Trainee {
	height := round(minHeight+getRandomFloat()*heightSpan, measureRoundingMultiplier)
	metres := height / centimetresPerMetre
	bmi := minBMI + getRandomFloat()*bmiSpan
	return Trainee{
		ID:         uuid.NewString(),
		Age:        minAge + randomInt(ageSpan),
		Height:     height,
		Weight:     round(bmi*metres*metres, measureRoundingMultiplier),
		BodyFat:    round(minBodyFat+getRandomFloat()*bodyFatSpan, measureRoundingMultiplier),
		BodyMuscle: round(minMuscle+getRandomFloat()*muscleSpan, measureRoundingMultiplier),
		Goals:      randomGoals(),
	}
}

func randomGoals() string {
	count := 1 + randomInt(maxGoals)
	picked := make([]string, 0, count)
	seen := make(map[int]bool, count)
	for len(picked) < count {
		i := randomInt(len(goalPool))
		if seen[i] {
			continue
		}
		seen[i] = true
		picked = append(picked, goalPool[i])
	}
	return strings.Join(picked, "|")
}
