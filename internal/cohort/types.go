// Package cohort loads per-subject, per-visit biomarker observations from
// delimited files or a Postgres database and prepares them for trajectory
// estimation.
package cohort

import "sort"

// Observation is a single biomarker measurement for one subject at one visit
type Observation struct {
	SubjectID string
	Age       float64
	Value     float64
}

// Subject holds one subject's observations, ordered by age
type Subject struct {
	ID           string
	Observations []Observation
}

// Group collects observations into per-subject series ordered by age.
// Subjects are returned in lexical ID order so downstream output is stable.
func Group(observations []Observation) []Subject {
	byID := make(map[string][]Observation)
	for _, obs := range observations {
		byID[obs.SubjectID] = append(byID[obs.SubjectID], obs)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	subjects := make([]Subject, 0, len(ids))
	for _, id := range ids {
		series := byID[id]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Age < series[j].Age
		})
		subjects = append(subjects, Subject{ID: id, Observations: series})
	}

	return subjects
}
