package milvus

import (
	"context"
	"fmt"
	"sync"

	"service-resolver-be/pkg/index"

	"github.com/milvus-io/milvus/client/v2/entity"
	milvusindex "github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

const (
	annsField          = "combined_embedding"
	fieldServiceName   = "primary_name"
	fieldGeneralizaton = "generalization"
)

// Client wraps the Milvus SDK for catalog searches. One long-lived client is
// shared across requests and closed at process shutdown.
type Client struct {
	cli    *milvusclient.Client
	metric string
	nprobe int

	mu     sync.Mutex
	loaded map[string]bool
}

var _ index.Client = &Client{}

func NewClient(ctx context.Context, addr string, metric string, nprobe int) (*Client, error) {
	cli, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: addr,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	if metric == "" {
		metric = "COSINE"
	}
	if nprobe <= 0 {
		nprobe = 16
	}
	return &Client{
		cli:    cli,
		metric: metric,
		nprobe: nprobe,
		loaded: make(map[string]bool),
	}, nil
}

// ensureLoaded loads the collection into memory once per process. The first
// search on a cold collection pays the load cost; that is a latency edge
// case, not an error.
func (c *Client) ensureLoaded(ctx context.Context, collection string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded[collection] {
		return nil
	}

	task, err := c.cli.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(collection))
	if err != nil {
		return fmt.Errorf("load collection %s: %w", collection, err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("await load of %s: %w", collection, err)
	}

	c.loaded[collection] = true
	return nil
}

func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int) ([]index.Candidate, error) {
	if err := c.ensureLoaded(ctx, collection); err != nil {
		return nil, err
	}

	annParam := milvusindex.NewIvfAnnParam(c.nprobe)
	opt := milvusclient.NewSearchOption(collection, limit, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(annsField).
		WithOutputFields(fieldServiceName, fieldGeneralizaton).
		WithAnnParam(annParam).
		WithSearchParam("metric_type", c.metric)

	resultSets, err := c.cli.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	var candidates []index.Candidate
	for _, rs := range resultSets {
		nameCol := rs.GetColumn(fieldServiceName)
		genCol := rs.GetColumn(fieldGeneralizaton)

		for i := 0; i < rs.ResultCount; i++ {
			name := ""
			if nameCol != nil {
				if v, err := nameCol.GetAsString(i); err == nil {
					name = v
				}
			}
			generalization := ""
			if genCol != nil {
				if v, err := genCol.GetAsString(i); err == nil {
					generalization = v
				}
			}

			externalID := ""
			if rs.IDs != nil {
				if v, err := rs.IDs.Get(i); err == nil {
					externalID = fmt.Sprint(v)
				}
			}

			candidates = append(candidates, index.Candidate{
				ServiceName:        name,
				GeneralizationText: generalization,
				Similarity:         float64(rs.Scores[i]),
				ExternalID:         externalID,
			})
		}
	}

	return candidates, nil
}

func (c *Client) Close() error {
	return c.cli.Close(context.Background())
}
