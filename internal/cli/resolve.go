package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// resolveDocumentID resolves a document identifier which can be:
//   - A full id
//   - A unique id prefix
//   - A document name (case-insensitive)
func resolveDocumentID(ctx context.Context, docs Documents, kind domain.DocumentKind, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%s id is required", kind)
	}

	list, err := docs.List(ctx, kind)
	if err != nil {
		return "", err
	}

	// 1. Exact id match
	for _, d := range list {
		if d.ID == input {
			return d.ID, nil
		}
	}

	// 2. Exact name match
	var byName []string
	for _, d := range list {
		if strings.EqualFold(d.Name, input) {
			byName = append(byName, d.ID)
		}
	}
	if len(byName) == 1 {
		return byName[0], nil
	}
	if len(byName) > 1 {
		return "", fmt.Errorf("%s name %q is ambiguous (%d matches)", kind, input, len(byName))
	}

	// 3. Id prefix match
	var matches []string
	for _, d := range list {
		if strings.HasPrefix(d.ID, input) {
			matches = append(matches, d.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %q: %w", kind, input, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s id prefix %q is ambiguous (%d matches)", kind, input, len(matches))
	}
}

// resolveNodeID resolves a node by exact id, unique id prefix or label.
func resolveNodeID(nodes []domain.Node, input string) (string, error) {
	for _, n := range nodes {
		if n.ID == input {
			return n.ID, nil
		}
	}

	var matches []string
	for _, n := range nodes {
		if strings.HasPrefix(n.ID, input) {
			matches = append(matches, n.ID)
		}
	}
	if len(matches) == 0 {
		for _, n := range nodes {
			if n.Label != "" && strings.EqualFold(n.Label, input) {
				matches = append(matches, n.ID)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("node %q: %w", input, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("node %q is ambiguous (%d matches)", input, len(matches))
	}
}
