package model

import "time"

type Category string

const (
	CategoryFrontend  Category = "frontend"
	CategoryBackend   Category = "backend"
	CategoryFullstack Category = "fullstack"
	CategoryMobile    Category = "mobile"
	CategoryTesting   Category = "testing"
)

// Categories lists every template category in display order.
var Categories = []Category{CategoryFrontend, CategoryBackend, CategoryFullstack, CategoryMobile, CategoryTesting}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

func (d Difficulty) Valid() bool {
	for _, v := range Difficulties {
		if d == v {
			return true
		}
	}
	return false
}

type DependencyType string

const (
	DependencyImport    DependencyType = "import"
	DependencyComponent DependencyType = "component"
	DependencyAPI       DependencyType = "api"
	DependencyData      DependencyType = "data"
)

func (t DependencyType) Valid() bool {
	switch t {
	case DependencyImport, DependencyComponent, DependencyAPI, DependencyData:
		return true
	}
	return false
}

// Dependency is a directed edge between two file paths: From depends on To.
type Dependency struct {
	From        string         `json:"from"        yaml:"from"`
	To          string         `json:"to"          yaml:"to"`
	Type        DependencyType `json:"type"        yaml:"type"`
	Description string         `json:"description" yaml:"description"`
}

// CodeFlowStep is one stage of the recommended build sequence.
type CodeFlowStep struct {
	ID            string   `json:"id"                      yaml:"id"`
	Order         int      `json:"order"                   yaml:"order"`
	Title         string   `json:"title"                   yaml:"title"`
	Description   string   `json:"description"             yaml:"description"`
	Files         []string `json:"files"                   yaml:"files"`
	Code          string   `json:"code,omitempty"          yaml:"code,omitempty"`
	EstimatedTime int      `json:"estimatedTime,omitempty" yaml:"estimatedTime,omitempty"`
}

type TemplateMetadata struct {
	EstimatedTime      string   `json:"estimatedTime,omitempty"      yaml:"estimatedTime,omitempty"`
	Prerequisites      []string `json:"prerequisites,omitempty"      yaml:"prerequisites,omitempty"`
	LearningObjectives []string `json:"learningObjectives,omitempty" yaml:"learningObjectives,omitempty"`
}

type TemplateStats struct {
	Views       int64   `json:"views"       yaml:"views"`
	Completions int64   `json:"completions" yaml:"completions"`
	Rating      float64 `json:"rating"      yaml:"rating"`
}

// Template is the top-level catalog aggregate.
type Template struct {
	ID            string           `json:"id"            yaml:"id"`
	Name          string           `json:"name"          yaml:"name"`
	Slug          string           `json:"slug"          yaml:"slug"`
	Description   string           `json:"description"   yaml:"description"`
	Category      Category         `json:"category"      yaml:"category"`
	Difficulty    Difficulty       `json:"difficulty"    yaml:"difficulty"`
	Tags          []string         `json:"tags"          yaml:"tags"`
	FileStructure *FileNode        `json:"fileStructure" yaml:"fileStructure"`
	Dependencies  []Dependency     `json:"dependencies"  yaml:"dependencies"`
	CodeFlow      []CodeFlowStep   `json:"codeFlow"      yaml:"codeFlow"`
	Metadata      TemplateMetadata `json:"metadata"      yaml:"metadata"`
	Stats         TemplateStats    `json:"stats"         yaml:"stats"`
	IsPublished   bool             `json:"isPublished"   yaml:"isPublished"`
	CreatedBy     string           `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"     yaml:"-"`
	UpdatedAt     time.Time        `json:"updatedAt"     yaml:"-"`
}

// TemplateSummary is the list view of a Template: everything except the
// file tree, dependency list and code flow.
type TemplateSummary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Category    Category         `json:"category"`
	Difficulty  Difficulty       `json:"difficulty"`
	Tags        []string         `json:"tags"`
	Metadata    TemplateMetadata `json:"metadata"`
	Stats       TemplateStats    `json:"stats"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// CategoryStats aggregates published templates of one category. The
// category is serialised as "_id" for compatibility with existing clients.
type CategoryStats struct {
	Category   Category `json:"_id"`
	Count      int      `json:"count"`
	AvgRating  float64  `json:"avgRating"`
	TotalViews int64    `json:"totalViews"`
}

// TemplateGraph is the dependency view of a template.
type TemplateGraph struct {
	TemplateID string       `json:"templateId"`
	Nodes      []GraphNode  `json:"nodes"`
	Edges      []Dependency `json:"edges"`
	BuildOrder []string     `json:"buildOrder"`
	Cyclic     []string     `json:"cyclic,omitempty"`
	Dangling   []Dependency `json:"dangling,omitempty"`
}

type GraphNode struct {
	ID    string   `json:"id"`
	Path  string   `json:"path"`
	Name  string   `json:"name"`
	Type  NodeType `json:"type"`
	Order int      `json:"order"`
}
