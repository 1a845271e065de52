package analysisd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/calibration-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/calibration-core/pkg/logger"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "calibration.v1.AnalysisService"

// AnalysisServiceServer is the server API of calibration.v1.AnalysisService.
// Messages are google.protobuf.Struct documents with the same fields as the
// HTTP API bodies.
type AnalysisServiceServer interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(AnalysisServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalysisServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalysisServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AnalysisServiceDesc describes calibration.v1.AnalysisService for
// grpc.Server.RegisterService.
var AnalysisServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalysisServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: unaryHandler("Submit", AnalysisServiceServer.Submit)},
		{MethodName: "Get", Handler: unaryHandler("Get", AnalysisServiceServer.Get)},
		{MethodName: "List", Handler: unaryHandler("List", AnalysisServiceServer.List)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "calibration/v1/analysis.proto",
}

// RegisterGRPC registers the analysis service and the standard health
// service on s. The returned health server reports SERVING for both.
func RegisterGRPC(s *grpc.Server, store *Store, executor *Executor) *health.Server {
	s.RegisterService(&AnalysisServiceDesc, NewGRPCServer(store, executor))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// GRPCServer implements AnalysisServiceServer on a Store and Executor.
type GRPCServer struct {
	store    *Store
	Executor *Executor
}

func NewGRPCServer(store *Store, executor *Executor) *GRPCServer {
	return &GRPCServer{
		store:    store,
		Executor: executor,
	}
}

// GetRequest selects one analysis.
type GetRequest struct {
	AnalysisID string `json:"analysis_id"`
}

// ListRequest pages through analyses.
type ListRequest struct {
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Status string `json:"status,omitempty"`
}

func (s *GRPCServer) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SubmitRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rec, err := s.Executor.Submit(req)
	if err != nil {
		return nil, grpcError(err)
	}
	logger.Info("analysis submitted (gRPC)", "analysis_id", rec.Analysis.ID)
	return toStruct(map[string]any{"analysis": rec.Analysis})
}

func (s *GRPCServer) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GetRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.AnalysisID == "" {
		return nil, status.Error(codes.InvalidArgument, "analysis_id is required")
	}
	rec, ok := s.store.Get(req.AnalysisID)
	if !ok {
		return nil, status.Error(codes.NotFound, "analysis not found")
	}

	resp := map[string]any{"analysis": rec.Analysis}
	if rec.Bundle != nil {
		resp["result"] = rec.Bundle
	}
	return toStruct(resp)
}

func (s *GRPCServer) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	var st Status
	if req.Status != "" {
		if st = ParseStatus(req.Status); st == "" {
			return nil, status.Errorf(codes.InvalidArgument, "unknown status: %s", req.Status)
		}
	}
	return toStruct(map[string]any{"analyses": s.store.List(req.Limit, req.Offset, st)})
}

// grpcError maps executor and pipeline errors to gRPC status errors.
func grpcError(err error) error {
	var (
		inputErr      *pipeline.InputError
		degenerateErr *pipeline.DegenerateInputError
	)
	switch {
	case errors.Is(err, ErrAnalysisNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrAnalysisExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrAnalysisTerminal):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrAnalysisIDMissing), errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidConfig),
		errors.As(err, &inputErr), errors.As(err, &degenerateErr):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// toStruct converts a JSON-encodable value into a Struct via its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// fromStruct decodes a Struct into dst through JSON.
func fromStruct(in *structpb.Struct, dst any) error {
	if in == nil {
		return fmt.Errorf("request is required")
	}
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// Client is a typed client for calibration.v1.AnalysisService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return err
	}
	return fromStruct(out, resp)
}

// AnalysisResponse is the reply of Submit and Get.
type AnalysisResponse struct {
	Analysis Analysis        `json:"analysis"`
	Result   json.RawMessage `json:"result,omitempty"`
}

func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*AnalysisResponse, error) {
	var resp AnalysisResponse
	if err := c.invoke(ctx, "Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Get(ctx context.Context, id string) (*AnalysisResponse, error) {
	var resp AnalysisResponse
	if err := c.invoke(ctx, "Get", GetRequest{AnalysisID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) List(ctx context.Context, req ListRequest) ([]Analysis, error) {
	var resp struct {
		Analyses []Analysis `json:"analyses"`
	}
	if err := c.invoke(ctx, "List", req, &resp); err != nil {
		return nil, err
	}
	return resp.Analyses, nil
}
