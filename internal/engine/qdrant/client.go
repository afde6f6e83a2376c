// Package qdrant implements the engine contract over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/vecshard/internal/domain"
	"github.com/kailas-cloud/vecshard/internal/engine"
)

// Config configures a node client.
type Config struct {
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	UseTLS         bool
	APIKey         string
	MaxMessageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Client is one engine node reached over gRPC.
type Client struct {
	addr   string
	client *qdrant.Client
	cfg    Config
	logger *zap.Logger
}

var _ engine.Engine = (*Client)(nil)

// NewDialer returns an engine.Dialer that opens node clients with the given
// settings. Addresses accept an optional tcp:// prefix (the deployment
// descriptor writes WOSERVER that way).
func NewDialer(cfg Config, logger *zap.Logger) engine.Dialer {
	return func(addr string) (engine.Engine, error) {
		return New(addr, cfg, logger)
	}
}

// New connects to a single node.
func New(addr string, cfg Config, logger *zap.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	host, port, err := splitAddr(addr)
	if err != nil {
		return nil, err
	}

	qcfg := &qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = append(qcfg.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	qc, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	return &Client{
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		client: qc,
		cfg:    cfg,
		logger: logger.With(zap.String("node", addr)),
	}, nil
}

// Addr implements engine.Engine.
func (c *Client) Addr() string { return c.addr }

// Ping implements engine.Engine.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	if _, err := c.client.HealthCheck(ctx); err != nil {
		return mapErr(c.addr, err)
	}
	return nil
}

// WaitForReady implements engine.Engine. It pings with a fixed backoff until
// the node answers or the timeout passes.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if lastErr = c.Ping(ctx); lastErr == nil {
			return nil
		}
		c.logger.Debug("node not ready", zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("node %s not ready after %s: %w", c.addr, timeout, lastErr)
}

// CreateCollection implements engine.Engine.
func (c *Client) CreateCollection(ctx context.Context, col domain.Collection) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	err := c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: col.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(col.Dim),
			Distance: toDistance(col.Metric),
		}),
	})
	return mapErr(c.addr, err)
}

// DropCollection implements engine.Engine.
func (c *Client) DropCollection(ctx context.Context, name string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	return mapErr(c.addr, c.client.DeleteCollection(ctx, name))
}

// HasCollection implements engine.Engine.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	exists, err := c.client.CollectionExists(ctx, name)
	if err != nil {
		return false, mapErr(c.addr, err)
	}
	return exists, nil
}

// DescribeCollection implements engine.Engine.
func (c *Client) DescribeCollection(ctx context.Context, name string) (domain.Collection, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	info, err := c.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return domain.Collection{}, mapErr(c.addr, err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	col := domain.Collection{
		Name:   name,
		Dim:    int(params.GetSize()),
		Metric: fromDistance(params.GetDistance()),
		Points: int64(info.GetPointsCount()),
	}
	return col, nil
}

// ListCollections implements engine.Engine.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	names, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, mapErr(c.addr, err)
	}
	return names, nil
}

// CountPoints implements engine.Engine.
func (c *Client) CountPoints(ctx context.Context, name string) (int64, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	count, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return -1, mapErr(c.addr, err)
	}
	return int64(count), nil
}

// CreateFieldIndex implements engine.Engine.
func (c *Client) CreateFieldIndex(ctx context.Context, collection, field, fieldType string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	ft, err := toFieldType(fieldType)
	if err != nil {
		return err
	}
	_, err = c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      field,
		FieldType:      &ft,
	})
	return mapErr(c.addr, err)
}

// DropFieldIndex implements engine.Engine.
func (c *Client) DropFieldIndex(ctx context.Context, collection, field string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.client.DeleteFieldIndex(ctx, &qdrant.DeleteFieldIndexCollection{
		CollectionName: collection,
		FieldName:      field,
	})
	return mapErr(c.addr, err)
}

// Upsert implements engine.Engine.
func (c *Client) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = toPointStruct(p)
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
		Wait:           qdrant.PtrOf(true),
	})
	return mapErr(c.addr, err)
}

// DeletePoints implements engine.Engine.
func (c *Client) DeletePoints(ctx context.Context, collection string, ids []string) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = toPointID(id)
	}

	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	return mapErr(c.addr, err)
}

// Search implements engine.Engine. Scores come back in the engine's native
// order for the collection metric; the merge layer re-sorts globally.
func (c *Client) Search(ctx context.Context, collection string, req domain.SearchRequest) ([]domain.SearchResult, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	q := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(req.Vector...),
		Limit:          qdrant.PtrOf(uint64(req.TopK)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         toFilter(req.Filter),
	}
	if req.EF > 0 {
		q.Params = &qdrant.SearchParams{HnswEf: qdrant.PtrOf(uint64(req.EF))}
	}
	if req.IncludeVectors {
		q.WithVectors = &qdrant.WithVectorsSelector{
			SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: true},
		}
	}

	scored, err := c.client.Query(ctx, q)
	if err != nil {
		return nil, mapErr(c.addr, err)
	}

	results := make([]domain.SearchResult, len(scored))
	for i, sp := range scored {
		results[i] = fromScoredPoint(sp)
	}
	return results, nil
}

// Close implements engine.Engine.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

// splitAddr parses "host:port" with an optional tcp:// prefix.
func splitAddr(addr string) (string, int, error) {
	addr = strings.TrimPrefix(strings.TrimSpace(addr), "tcp://")
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid node address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in node address %q", addr)
	}
	return host, port, nil
}

// mapErr translates gRPC status codes into domain sentinels so upper layers
// can branch without importing grpc.
func mapErr(addr string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return domain.NewShardError(addr, err)
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrInvalidSchema, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return domain.NewShardError(addr, err)
	default:
		return domain.NewShardError(addr, err)
	}
}
