package remote

import (
	"context"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// Chart is the remote store of a single document's flowchart.
type Chart struct {
	client *Client
	kind   domain.DocumentKind
	id     string
	name   string
}

func (c *Client) Chart(kind domain.DocumentKind, id string) *Chart {
	return &Chart{client: c, kind: kind, id: id}
}

// Load fetches the chart and remembers the document name.
func (ch *Chart) Load(ctx context.Context) ([]domain.Node, error) {
	name, nodes, err := ch.client.LoadFlowchart(ctx, ch.kind, ch.id)
	if err != nil {
		return nil, err
	}
	ch.name = name
	return nodes, nil
}

func (ch *Chart) Save(ctx context.Context, nodes []domain.Node) error {
	return ch.client.SaveFlowchart(ctx, ch.kind, ch.id, nodes)
}

// Name is the document name seen by the last successful Load.
func (ch *Chart) Name() string {
	return ch.name
}
