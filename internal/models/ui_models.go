package models

import (
	"math"
)

// MatchPercent is the score shown next to a candidate, e.g. 80 for 0.8
func (c Candidate) MatchPercent() int {
	return int(math.Round(c.Score * 100))
}

// CandidateOption is a rendering-neutral view of a candidate used by chat and HTTP surfaces
type CandidateOption struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Mobile       string `json:"mobile"`
	UPI          string `json:"upi"`
	MatchPercent int    `json:"matchPercent"`
}

// CandidateOptions converts ranked candidates into display options, preserving order
func CandidateOptions(candidates []Candidate) []CandidateOption {
	options := make([]CandidateOption, 0, len(candidates))
	for i, c := range candidates {
		options = append(options, CandidateOption{
			Index:        i,
			Name:         c.Contact.Name,
			Mobile:       c.Contact.Mobile,
			UPI:          c.Contact.UPI,
			MatchPercent: c.MatchPercent(),
		})
	}
	return options
}
