package printing

import (
	"fmt"
	"strings"
)

// Report summarizes one export.
type Report struct {
	Pages   []Page `json:"pages"`
	Skipped []Skip `json:"skipped"`
}

// Page is one rendered card. Index is the photo's position in the input.
type Page struct {
	Index        int     `json:"index"`
	PhotoID      string  `json:"photoId"`
	EffectiveDPI float64 `json:"effectiveDpi"`
	LowRes       bool    `json:"lowRes"`
}

// Skip is a photo left out of the export.
type Skip struct {
	Index   int    `json:"index"`
	PhotoID string `json:"photoId"`
	Reason  string `json:"reason"`
}

// LowResCount returns the number of pages below the low resolution threshold.
func (r *Report) LowResCount() int {
	n := 0
	for _, p := range r.Pages {
		if p.LowRes {
			n++
		}
	}
	return n
}

// SkippedHeader formats skips as "index:id" pairs for a response header.
func (r *Report) SkippedHeader() string {
	parts := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		parts[i] = fmt.Sprintf("%d:%s", s.Index, s.PhotoID)
	}
	return strings.Join(parts, ",")
}
