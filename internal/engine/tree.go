package engine

import (
	"context"
	"sort"
	"strings"
)

// TreeNode is one node in the hierarchical grouping of document ids by the
// path-like separators in the id string. Display only; no ranking semantics.
type TreeNode struct {
	Name       string
	DocumentID string // non-empty on leaves
	Children   []*TreeNode
}

// Tree groups every stored document id into a hierarchy rooted at an unnamed
// node. Children are sorted by name at every level.
func (e *Engine) Tree(ctx context.Context) (*TreeNode, error) {
	ids, err := e.meta.IDs(ctx)
	if err != nil {
		return nil, err
	}

	root := &TreeNode{}
	for _, id := range ids {
		insert(root, strings.Split(id, "/"), id)
	}
	sortTree(root)
	return root, nil
}

func insert(node *TreeNode, parts []string, id string) {
	name := parts[0]
	if len(parts) == 1 {
		node.Children = append(node.Children, &TreeNode{Name: name, DocumentID: id})
		return
	}
	child := findChild(node, name)
	if child == nil {
		child = &TreeNode{Name: name}
		node.Children = append(node.Children, child)
	}
	insert(child, parts[1:], id)
}

func findChild(node *TreeNode, name string) *TreeNode {
	for _, child := range node.Children {
		if child.Name == name && child.DocumentID == "" {
			return child
		}
	}
	return nil
}

func sortTree(node *TreeNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Name < node.Children[j].Name
	})
	for _, child := range node.Children {
		sortTree(child)
	}
}
