// Package qdrant implements the chunk index over a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
)

// Config holds Qdrant connection parameters.
type Config struct {
	URL        string // e.g. "http://localhost:6334"; gRPC port
	APIKey     string
	Collection string
}

// client is the subset of *pb.Client the index uses.
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *pb.CreateCollection) error
	DeleteCollection(ctx context.Context, name string) error
	CreateFieldIndex(ctx context.Context, req *pb.CreateFieldIndexCollection) (*pb.UpdateResult, error)
	Upsert(ctx context.Context, req *pb.UpsertPoints) (*pb.UpdateResult, error)
	Query(ctx context.Context, req *pb.QueryPoints) ([]*pb.ScoredPoint, error)
	Count(ctx context.Context, req *pb.CountPoints) (uint64, error)
	HealthCheck(ctx context.Context) (*pb.HealthCheckReply, error)
	Close() error
}

// Dial opens a gRPC connection and returns an Index bound to cfg.Collection.
func Dial(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}

	port := 6334
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
	}

	c, err := pb.NewClient(&pb.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return newIndex(c, cfg.Collection), nil
}
