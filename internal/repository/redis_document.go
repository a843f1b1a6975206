package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	RedisKeyPrefix   = "flowdesk:doc:"
	RedisIndexPrefix = "flowdesk:index:"

	// maxWatchAttempts bounds how often a replace is retried when another
	// writer touches the key between WATCH and EXEC.
	maxWatchAttempts = 10
)

// RedisDocumentRepo implements DocumentRepo on Redis. Each document is one
// JSON value; a set per kind indexes the ids.
type RedisDocumentRepo struct {
	client *redis.Client
}

func NewRedisDocumentRepo(client *redis.Client) *RedisDocumentRepo {
	return &RedisDocumentRepo{client: client}
}

func redisDocKey(kind domain.DocumentKind, id string) string {
	return RedisKeyPrefix + string(kind) + ":" + id
}

func redisIndexKey(kind domain.DocumentKind) string {
	return RedisIndexPrefix + string(kind)
}

func (r *RedisDocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	data, err := encodeDocument(d)
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, redisDocKey(d.Kind, d.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("storing %s: %w", d.Kind, err)
	}
	if !ok {
		return fmt.Errorf("%s %s already exists", d.Kind, d.ID)
	}
	if err := r.client.SAdd(ctx, redisIndexKey(d.Kind), d.ID).Err(); err != nil {
		return fmt.Errorf("indexing %s: %w", d.Kind, err)
	}
	return nil
}

func (r *RedisDocumentRepo) GetByID(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error) {
	data, err := r.client.Get(ctx, redisDocKey(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound(kind, id)
		}
		return nil, fmt.Errorf("loading %s: %w", kind, err)
	}
	return decodeDocument(data)
}

func (r *RedisDocumentRepo) List(ctx context.Context, kind domain.DocumentKind) ([]*domain.Document, error) {
	ids, err := r.client.SMembers(ctx, redisIndexKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", kind, err)
	}

	var docs []*domain.Document
	for _, id := range ids {
		d, err := r.GetByID(ctx, kind, id)
		if errors.Is(err, domain.ErrNotFound) {
			// Index entry outlived its document.
			continue
		}
		if err != nil {
			return nil, err
		}
		d.Nodes = nil
		docs = append(docs, d)
	}
	sortHeaders(docs)
	return docs, nil
}

func (r *RedisDocumentRepo) ReplaceNodes(ctx context.Context, kind domain.DocumentKind, id string, nodes []domain.Node) error {
	key := redisDocKey(kind, id)
	replace := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return notFound(kind, id)
		}
		if err != nil {
			return fmt.Errorf("loading %s: %w", kind, err)
		}
		d, err := decodeDocument(data)
		if err != nil {
			return err
		}
		d.Nodes = domain.CloneNodes(nodes)
		d.UpdatedAt = nowUTC()
		updated, err := encodeDocument(d)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}
	err := retryOnTxFailed(ctx, maxWatchAttempts, func() error {
		return r.client.Watch(ctx, replace, key)
	})
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("replacing %s %s: %w", kind, id, err)
	}
	return err
}

// retryOnTxFailed runs fn until it succeeds, fails with anything other than
// redis.TxFailedErr, or has been tried attempts times. The last writer wins.
func retryOnTxFailed(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (r *RedisDocumentRepo) Delete(ctx context.Context, kind domain.DocumentKind, id string) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, redisDocKey(kind, id))
	pipe.SRem(ctx, redisIndexKey(kind), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting %s: %w", kind, err)
	}
	if del.Val() == 0 {
		return notFound(kind, id)
	}
	return nil
}

func encodeDocument(d *domain.Document) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s: %w", d.Kind, d.ID, err)
	}
	return data, nil
}

func decodeDocument(data []byte) (*domain.Document, error) {
	var d domain.Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if d.Nodes == nil {
		d.Nodes = []domain.Node{}
	}
	for i := range d.Nodes {
		d.Nodes[i].Normalize()
	}
	return &d, nil
}

// sortHeaders orders documents most recently updated first, then by name.
func sortHeaders(docs []*domain.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].Name < docs[j].Name
	})
}
