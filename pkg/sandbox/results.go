package sandbox

import (
	"encoding/json"
	"sort"

	"github.com/datakiln/datakiln/pkg/api"
)

// ParseModelScores decodes a results document of the shape the
// generated training and tuning code is prompted to produce: a mapping
// of model name to a metrics object. The shape is advisory, not
// enforced, so decoding is tolerant: unparseable documents yield nil
// and the caller keeps the raw bytes.
func ParseModelScores(data []byte) []api.ModelScore {
	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	scores := make([]api.ModelScore, 0, len(doc))
	for name, fields := range doc {
		score := api.ModelScore{Name: name}
		for key, value := range fields {
			switch v := value.(type) {
			case float64:
				if score.Metrics == nil {
					score.Metrics = make(map[string]float64)
				}
				score.Metrics[key] = v
				if key == "accuracy" {
					score.Accuracy = v
				} else if key == "r2" && score.Accuracy == 0 {
					score.Accuracy = v
				}
			case string:
				if key == "model_file" || key == "file" {
					score.File = v
				}
			case map[string]any:
				if key == "best_params" || key == "params" {
					score.Params = v
				}
			}
		}
		scores = append(scores, score)
	}
	if len(scores) == 0 {
		return nil
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Accuracy != scores[j].Accuracy {
			return scores[i].Accuracy > scores[j].Accuracy
		}
		return scores[i].Name < scores[j].Name
	})
	return scores
}
