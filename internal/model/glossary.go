package model

import "time"

type GlossaryCategory string

const (
	GlossaryFrontend GlossaryCategory = "Frontend"
	GlossaryBackend  GlossaryCategory = "Backend"
	GlossaryDatabase GlossaryCategory = "Database"
	GlossaryGeneral  GlossaryCategory = "General"
	GlossaryTesting  GlossaryCategory = "Testing"
	GlossaryDevOps   GlossaryCategory = "DevOps"
)

var GlossaryCategories = []GlossaryCategory{
	GlossaryFrontend, GlossaryBackend, GlossaryDatabase, GlossaryGeneral, GlossaryTesting, GlossaryDevOps,
}

func (c GlossaryCategory) Valid() bool {
	for _, v := range GlossaryCategories {
		if c == v {
			return true
		}
	}
	return false
}

type GlossaryTerm struct {
	ID           string           `json:"id"           yaml:"id"`
	Term         string           `json:"term"         yaml:"term"`
	Definition   string           `json:"definition"   yaml:"definition"`
	Category     GlossaryCategory `json:"category"     yaml:"category"`
	Difficulty   Difficulty       `json:"difficulty"   yaml:"difficulty"`
	Examples     []string         `json:"examples"     yaml:"examples"`
	RelatedTerms []string         `json:"relatedTerms" yaml:"relatedTerms"`
	Tags         []string         `json:"tags"         yaml:"tags"`
	IsPublished  bool             `json:"isPublished"  yaml:"isPublished"`
	CreatedAt    time.Time        `json:"createdAt"    yaml:"-"`
	UpdatedAt    time.Time        `json:"updatedAt"    yaml:"-"`
}
