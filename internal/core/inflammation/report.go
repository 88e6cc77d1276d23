package inflammation

import (
	"fmt"
	"io"
)

// sampleNutrientCount 報告中列出的營養素數量
const sampleNutrientCount = 10

// Extreme 最高或最低分的食材
type Extreme struct {
	Ingredient string  `json:"ingredient"`
	Score      float64 `json:"dii_score"`
}

// Summary 發炎表統計摘要
type Summary struct {
	Ingredients       int      `json:"ingredients"`
	Nutrients         int      `json:"nutrients"`
	MinScore          float64  `json:"min_dii_score"`
	MaxScore          float64  `json:"max_dii_score"`
	AverageScore      float64  `json:"average_dii_score"`
	MostInflammatory  Extreme  `json:"most_inflammatory"`
	LeastInflammatory Extreme  `json:"least_inflammatory"`
	AverageMatch      float64  `json:"average_match_percentage"`
	BestMatch         float64  `json:"best_match_percentage"`
	WorstMatch        float64  `json:"worst_match_percentage"`
	SampleNutrients   []string `json:"sample_nutrients"`
}

// Summarize 計算發炎表摘要；nutrientNames 應已排序
func Summarize(rows []Row, nutrientNames []string) Summary {
	s := Summary{
		Ingredients: len(rows),
		Nutrients:   len(nutrientNames),
	}
	n := sampleNutrientCount
	if len(nutrientNames) < n {
		n = len(nutrientNames)
	}
	s.SampleNutrients = append([]string(nil), nutrientNames[:n]...)

	if len(rows) == 0 {
		return s
	}

	first := rows[0].Result
	s.MinScore, s.MaxScore = first.Score, first.Score
	s.MostInflammatory = Extreme{Ingredient: first.Ingredient, Score: first.Score}
	s.LeastInflammatory = s.MostInflammatory
	s.BestMatch, s.WorstMatch = first.MatchPercentage, first.MatchPercentage

	var scoreSum, matchSum float64
	for _, row := range rows {
		r := row.Result
		scoreSum += r.Score
		matchSum += r.MatchPercentage
		if r.Score > s.MaxScore {
			s.MaxScore = r.Score
			s.MostInflammatory = Extreme{Ingredient: r.Ingredient, Score: r.Score}
		}
		if r.Score < s.MinScore {
			s.MinScore = r.Score
			s.LeastInflammatory = Extreme{Ingredient: r.Ingredient, Score: r.Score}
		}
		if r.MatchPercentage > s.BestMatch {
			s.BestMatch = r.MatchPercentage
		}
		if r.MatchPercentage < s.WorstMatch {
			s.WorstMatch = r.MatchPercentage
		}
	}
	s.AverageScore = scoreSum / float64(len(rows))
	s.AverageMatch = matchSum / float64(len(rows))
	return s
}

// WriteText 以純文字輸出摘要
func (s Summary) WriteText(w io.Writer) error {
	lines := []string{
		"=== DII CALCULATION SUMMARY ===",
		fmt.Sprintf("Total ingredients processed: %d", s.Ingredients),
		fmt.Sprintf("Total nutritional values included: %d", s.Nutrients),
	}
	if s.Ingredients > 0 {
		lines = append(lines,
			fmt.Sprintf("DII Score Range: %.4f to %.4f", s.MinScore, s.MaxScore),
			fmt.Sprintf("Average DII Score: %.4f", s.AverageScore),
			"",
			fmt.Sprintf("Most inflammatory: %s (DII: %.4f)", s.MostInflammatory.Ingredient, s.MostInflammatory.Score),
			fmt.Sprintf("Least inflammatory: %s (DII: %.4f)", s.LeastInflammatory.Ingredient, s.LeastInflammatory.Score),
			"",
			"Nutrient Matching:",
			fmt.Sprintf("Average match percentage: %.1f%%", s.AverageMatch),
			fmt.Sprintf("Best match: %.1f%%", s.BestMatch),
			fmt.Sprintf("Worst match: %.1f%%", s.WorstMatch),
		)
	}
	lines = append(lines, "", "Sample of nutritional values included:")
	for _, n := range s.SampleNutrients {
		lines = append(lines, "  - "+n)
	}
	if s.Nutrients > len(s.SampleNutrients) {
		lines = append(lines, fmt.Sprintf("  ... and %d more nutrients", s.Nutrients-len(s.SampleNutrients)))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
