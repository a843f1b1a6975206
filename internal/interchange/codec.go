package interchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"gopkg.in/yaml.v3"
)

// Export writes the chart as {name, flowChart} in the given format.
func Export(w io.Writer, name string, nodes []domain.Node, format Format) error {
	file := File{Name: name, FlowChart: nodes}
	if file.FlowChart == nil {
		file.FlowChart = []domain.Node{}
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(file); err != nil {
			return fmt.Errorf("encoding yaml export: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(file, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding json export: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	}
}

// Import decodes an export. A document with a flowChart property yields that
// array; a bare array is taken as the node list itself. Nodes are normalized
// and validated, and every failure wraps domain.ErrInvalidImport.
func Import(r io.Reader, format Format) ([]domain.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading file: %w", domain.ErrInvalidImport, err)
	}

	var nodes []domain.Node
	switch format {
	case FormatYAML:
		nodes, err = decodeYAML(data)
	default:
		nodes, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidImport, err)
	}

	if nodes == nil {
		nodes = []domain.Node{}
	}
	for i := range nodes {
		nodes[i].Normalize()
	}
	if errs := ValidateNodes(nodes); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidImport, errors.Join(errs...))
	}
	return nodes, nil
}

func decodeJSON(data []byte) ([]domain.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty file")
	}

	var nodes []domain.Node
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, fmt.Errorf("parsing node array: %w", err)
		}
		return nodes, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	raw, ok := fields["flowChart"]
	if !ok {
		return nil, errors.New("expected a flowChart property or a node array")
	}
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("parsing flowChart: %w", err)
	}
	return nodes, nil
}

func decodeYAML(data []byte) ([]domain.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty file")
	}
	root := doc.Content[0]

	var nodes []domain.Node
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&nodes); err != nil {
			return nil, fmt.Errorf("parsing node list: %w", err)
		}
		return nodes, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value != "flowChart" {
				continue
			}
			if err := root.Content[i+1].Decode(&nodes); err != nil {
				return nil, fmt.Errorf("parsing flowChart: %w", err)
			}
			return nodes, nil
		}
	}
	return nil, errors.New("expected a flowChart property or a node list")
}
