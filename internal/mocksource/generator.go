// Package mocksource serves a deterministic in-memory rendition of the
// source API, for end-to-end runs without source credentials. Pair it
// with the field mappings in edusync.example.yaml.
package mocksource

import (
	"fmt"
	"math/rand"
)

// Dataset holds generated records per stream, in stable order.
type Dataset struct {
	Streams map[string][]map[string]any
}

// Generate builds a dataset of n students spread over two
// establishments, with scores, question responses and comments. The
// same seed always yields the same dataset.
func Generate(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))

	establishments := []map[string]any{
		{"id": "est-oak", "field_1": "Oak School", "field_2": "0"},
		{"id": "est-birch", "field_1": "Birch College", "field_2": "1"},
	}

	var assessments, responses, comments []map[string]any
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("student%03d@school.org", i)
		est := establishments[i%len(establishments)]
		// the alternate-calendar establishment gets in-year dates
		date := "15/10/2025"
		if est["id"] == "est-birch" {
			date = "15/03/2025"
		}

		rec := map[string]any{
			"id":       fmt.Sprintf("asm-%03d", i),
			"field_10": fmt.Sprintf("<a href=\"mailto:%s\">%s</a>", email, email),
			"field_11": map[string]any{"first": "Student", "last": fmt.Sprintf("Num%03d", i)},
			"field_12": []any{map[string]any{"id": est["id"], "identifier": est["field_1"]}},
			"field_13": fmt.Sprintf("%d", 7+rng.Intn(6)),
			"field_16": date,
		}
		// every student completes cycle 1; later cycles taper off
		cycles := 1 + rng.Intn(3)
		bases := []int{20, 30, 40}
		for c := 0; c < cycles; c++ {
			b := bases[c]
			total := 0
			for d := 0; d < 5; d++ {
				v := rng.Intn(11)
				total += v
				rec[fmt.Sprintf("field_%d", b+d)] = fmt.Sprintf("%d", v)
			}
			rec[fmt.Sprintf("field_%d", b+5)] = fmt.Sprintf("%.1f", float64(total)/5)
		}
		assessments = append(assessments, rec)

		resp := map[string]any{
			"id":       fmt.Sprintf("resp-%03d", i),
			"field_50": email,
			"field_51": date,
		}
		for _, qf := range []string{"field_60", "field_70"} {
			resp[qf] = fmt.Sprintf("%d", 1+rng.Intn(5))
		}
		responses = append(responses, resp)

		comments = append(comments, map[string]any{
			"id":       fmt.Sprintf("com-%03d", i),
			"field_80": email,
			"field_81": "1",
			"field_82": date,
			"field_83": fmt.Sprintf("<p>Reflection from student %03d</p>", i),
			"field_84": fmt.Sprintf("<p>Goal from student %03d</p>", i),
		})
	}

	return &Dataset{Streams: map[string][]map[string]any{
		"establishments": establishments,
		"assessments":    assessments,
		"responses":      responses,
		"comments":       comments,
	}}
}
