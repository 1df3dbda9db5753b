// Package model defines the data structures used throughout the application.
package model

// NodeType tells a file from a folder in a project's file tree.
type NodeType string

const (
	NodeFile   NodeType = "file"
	NodeFolder NodeType = "folder"
)

// FileNode is one entry in a template's file structure.
//
// The tree is strict: a folder owns its children, nothing is shared, and
// there are no cycles. Children on a file node are tolerated in source
// data but ignored by every traversal (see ChildNodes).
type FileNode struct {
	ID          string      `json:"id"                    yaml:"id"`
	Name        string      `json:"name"                  yaml:"name"`
	Type        NodeType    `json:"type"                  yaml:"type"`
	Path        string      `json:"path"                  yaml:"path"`
	Order       int         `json:"order"                 yaml:"order"`
	Description string      `json:"description"           yaml:"description"`
	Tool        string      `json:"tool"                  yaml:"tool"`
	Boilerplate string      `json:"boilerplate,omitempty" yaml:"boilerplate,omitempty"`
	Imports     []string    `json:"imports,omitempty"     yaml:"imports,omitempty"`
	Exports     []string    `json:"exports,omitempty"     yaml:"exports,omitempty"`
	Children    []*FileNode `json:"children,omitempty"    yaml:"children,omitempty"`
}

func (n *FileNode) IsFolder() bool { return n != nil && n.Type == NodeFolder }

func (n *FileNode) IsFile() bool { return n != nil && n.Type == NodeFile }

// ChildNodes returns the children that take part in traversal: a folder's
// children, or nil for anything else.
func (n *FileNode) ChildNodes() []*FileNode {
	if !n.IsFolder() {
		return nil
	}
	return n.Children
}
