package model

import "time"

// Project is the showcase variant of a catalog entry. Its ID is chosen by
// the author (e.g. "mern-blog") and it is retired by clearing IsActive.
type Project struct {
	ID                 string         `json:"id"                 yaml:"id"`
	Name               string         `json:"name"               yaml:"name"`
	Description        string         `json:"description"        yaml:"description"`
	Tech               []string       `json:"tech"               yaml:"tech"`
	Color              string         `json:"color"              yaml:"color"`
	Icon               string         `json:"icon"               yaml:"icon"`
	Difficulty         Difficulty     `json:"difficulty"         yaml:"difficulty"`
	EstimatedHours     int            `json:"estimatedHours"     yaml:"estimatedHours"`
	FileStructure      *FileNode      `json:"fileStructure"      yaml:"fileStructure"`
	CodeFlow           []CodeFlowStep `json:"codeFlow"           yaml:"codeFlow"`
	Dependencies       []string       `json:"dependencies"       yaml:"dependencies"`
	SetupInstructions  []string       `json:"setupInstructions"  yaml:"setupInstructions"`
	IsActive           bool           `json:"isActive"           yaml:"isActive"`
	Featured           bool           `json:"featured"           yaml:"featured"`
	Tags               []string       `json:"tags"               yaml:"tags"`
	Prerequisites      []string       `json:"prerequisites"      yaml:"prerequisites"`
	LearningObjectives []string       `json:"learningObjectives" yaml:"learningObjectives"`
	TotalFiles         int            `json:"totalFiles"         yaml:"-"`
	CreatedAt          time.Time      `json:"createdAt"          yaml:"-"`
	UpdatedAt          time.Time      `json:"updatedAt"          yaml:"-"`
}

// ProjectSummary is the list view of a Project.
type ProjectSummary struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Tech           []string   `json:"tech"`
	Color          string     `json:"color"`
	Icon           string     `json:"icon"`
	Difficulty     Difficulty `json:"difficulty"`
	EstimatedHours int        `json:"estimatedHours"`
	Featured       bool       `json:"featured"`
	Tags           []string   `json:"tags"`
	TotalFiles     int        `json:"totalFiles"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type ProjectStats struct {
	TotalFiles     int        `json:"totalFiles"`
	Dependencies   int        `json:"dependencies"`
	SetupSteps     int        `json:"setupSteps"`
	CodeFlowSteps  int        `json:"codeFlowSteps"`
	EstimatedHours int        `json:"estimatedHours"`
	Difficulty     Difficulty `json:"difficulty"`
}
