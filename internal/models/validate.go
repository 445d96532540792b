package models

import (
	"sort"
	"strings"
)

// Validate checks that a document is exportable. The first violation is
// returned in this order: title, start node, start text, root choice labels,
// then referential integrity and ending/choice exclusivity for every node.
func Validate(doc *StoryDocument) error {
	if doc == nil {
		return ErrMissingStartNode
	}
	if strings.TrimSpace(doc.Metadata.Title) == "" {
		return ErrMissingTitle
	}
	start, ok := doc.Nodes[doc.StartNodeID]
	if !ok || start == nil {
		return NewValidationError(ErrMissingStartNode, doc.StartNodeID)
	}
	if strings.TrimSpace(start.Text) == "" {
		return NewValidationError(ErrMissingStartText, start.ID)
	}
	for _, c := range start.Choices {
		if strings.TrimSpace(c.Label) == "" {
			return NewValidationError(ErrMissingLabel, c.NextID)
		}
	}

	for _, id := range SortedNodeIDs(doc) {
		n := doc.Nodes[id]
		if n.IsEnding() && len(n.Choices) > 0 {
			return NewValidationError(ErrEndingHasChoices, id)
		}
		for _, c := range n.Choices {
			if _, ok := doc.Nodes[c.NextID]; !ok {
				return NewValidationError(ErrDanglingChoice, id)
			}
		}
	}
	return nil
}

// VerifyTree checks the shape the builder maintains by construction: node ids
// match their keys, endings carry no choices, out-degree is at most two, no
// node has two parents, there are no cycles and every node hangs off the
// start node.
func VerifyTree(doc *StoryDocument) error {
	if doc == nil {
		return ErrMissingStartNode
	}
	if _, ok := doc.Nodes[doc.StartNodeID]; !ok {
		return NewValidationError(ErrMissingStartNode, doc.StartNodeID)
	}

	parents := make(map[string]string, len(doc.Nodes))
	for _, id := range SortedNodeIDs(doc) {
		n := doc.Nodes[id]
		if n == nil || n.ID != id {
			return &ValidationError{Code: CodeNodeNotFound, NodeID: id, Message: "node id does not match its key"}
		}
		if n.IsEnding() && len(n.Choices) > 0 {
			return NewValidationError(ErrEndingHasChoices, id)
		}
		if len(n.Choices) > MaxChoices {
			return NewValidationError(ErrTooManyChoices, id)
		}
		for _, c := range n.Choices {
			if _, ok := doc.Nodes[c.NextID]; !ok {
				return NewValidationError(ErrDanglingChoice, id)
			}
			if c.NextID == doc.StartNodeID {
				return NewValidationError(ErrCycle, id)
			}
			if _, seen := parents[c.NextID]; seen {
				return NewValidationError(ErrMergePoint, c.NextID)
			}
			parents[c.NextID] = id
		}
	}

	// With in-degree <= 1 everywhere and the start node having no parent,
	// any node not reached from start sits on a cycle or in a detached part.
	reached := make(map[string]bool, len(doc.Nodes))
	stack := []string{doc.StartNodeID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			return NewValidationError(ErrCycle, id)
		}
		reached[id] = true
		for _, c := range doc.Nodes[id].Choices {
			stack = append(stack, c.NextID)
		}
	}
	for _, id := range SortedNodeIDs(doc) {
		if !reached[id] {
			return NewValidationError(ErrUnreachableNode, id)
		}
	}
	return nil
}

// Resolve looks up a node by id.
func Resolve(doc *StoryDocument, nodeID string) (*Node, error) {
	if doc == nil {
		return nil, NewValidationError(ErrNodeNotFound, nodeID)
	}
	n, ok := doc.Nodes[nodeID]
	if !ok || n == nil {
		return nil, NewValidationError(ErrNodeNotFound, nodeID)
	}
	return n, nil
}

// FindParent returns the node holding the choice that leads to nodeID and the
// index of that choice. It walks from the start node; parents are never stored.
func FindParent(doc *StoryDocument, nodeID string) (*Node, int, bool) {
	if doc == nil {
		return nil, -1, false
	}
	visited := make(map[string]bool, len(doc.Nodes))
	stack := []string{doc.StartNodeID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		n, ok := doc.Nodes[id]
		if !ok {
			continue
		}
		for i, c := range n.Choices {
			if c.NextID == nodeID {
				return n, i, true
			}
			stack = append(stack, c.NextID)
		}
	}
	return nil, -1, false
}

// SortedNodeIDs returns node ids in lexical order for deterministic walks.
func SortedNodeIDs(doc *StoryDocument) []string {
	ids := make([]string, 0, len(doc.Nodes))
	for id := range doc.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
