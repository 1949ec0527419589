package qdrant

import (
	"context"

	pb "github.com/qdrant/go-client/qdrant"
)

type mockClient struct {
	existsFn      func(ctx context.Context, name string) (bool, error)
	createFn      func(ctx context.Context, req *pb.CreateCollection) error
	deleteFn      func(ctx context.Context, name string) error
	fieldIndexFn  func(ctx context.Context, req *pb.CreateFieldIndexCollection) (*pb.UpdateResult, error)
	upsertFn      func(ctx context.Context, req *pb.UpsertPoints) (*pb.UpdateResult, error)
	queryFn       func(ctx context.Context, req *pb.QueryPoints) ([]*pb.ScoredPoint, error)
	countFn       func(ctx context.Context, req *pb.CountPoints) (uint64, error)
	healthCheckFn func(ctx context.Context) (*pb.HealthCheckReply, error)
	closed        bool
}

func (m *mockClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, name)
	}
	return false, nil
}

func (m *mockClient) CreateCollection(ctx context.Context, req *pb.CreateCollection) error {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil
}

func (m *mockClient) DeleteCollection(ctx context.Context, name string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, name)
	}
	return nil
}

func (m *mockClient) CreateFieldIndex(
	ctx context.Context, req *pb.CreateFieldIndexCollection,
) (*pb.UpdateResult, error) {
	if m.fieldIndexFn != nil {
		return m.fieldIndexFn(ctx, req)
	}
	return &pb.UpdateResult{}, nil
}

func (m *mockClient) Upsert(ctx context.Context, req *pb.UpsertPoints) (*pb.UpdateResult, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, req)
	}
	return &pb.UpdateResult{}, nil
}

func (m *mockClient) Query(ctx context.Context, req *pb.QueryPoints) ([]*pb.ScoredPoint, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, req)
	}
	return nil, nil
}

func (m *mockClient) Count(ctx context.Context, req *pb.CountPoints) (uint64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, req)
	}
	return 0, nil
}

func (m *mockClient) HealthCheck(ctx context.Context) (*pb.HealthCheckReply, error) {
	if m.healthCheckFn != nil {
		return m.healthCheckFn(ctx)
	}
	return &pb.HealthCheckReply{}, nil
}

func (m *mockClient) Close() error {
	m.closed = true
	return nil
}
