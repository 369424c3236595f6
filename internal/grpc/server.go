package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"slices"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/mr1hm/go-disaster-dashboard/internal/dashboard"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

// Dashboard is the session surface the service exposes.
type Dashboard interface {
	Search(term string) ([]models.NamedLocation, bool)
	SearchSession(id, term string) ([]models.NamedLocation, bool, error)
	Snapshot(id string) (dashboard.Snapshot, error)
	Select(id, name, region string) (dashboard.Snapshot, error)
}

type Server struct {
	dashboard   Dashboard
	broadcaster *Broadcaster
	grpcServer  *grpc.Server
	health      *health.Server
}

func NewServer(d Dashboard, broadcaster *Broadcaster) *Server {
	s := &Server{
		dashboard:   d,
		broadcaster: broadcaster,
		grpcServer:  grpc.NewServer(),
		health:      health.NewServer(),
	}
	RegisterDashboardServiceServer(s.grpcServer, s)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	slog.Info("gRPC server listening", "addr", addr)
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func (s *Server) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req.SessionID == "" {
		results, show := s.dashboard.Search(req.Query)
		return &SearchResponse{Results: results, ShowResults: show}, nil
	}

	results, show, err := s.dashboard.SearchSession(req.SessionID, req.Query)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SearchResponse{Results: results, ShowResults: show}, nil
}

func (s *Server) GetSnapshot(ctx context.Context, req *SnapshotRequest) (*dashboard.Snapshot, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}

	snap, err := s.dashboard.Snapshot(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &snap, nil
}

func (s *Server) Select(ctx context.Context, req *SelectRequest) (*dashboard.Snapshot, error) {
	if req.SessionID == "" || req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id and name are required")
	}

	snap, err := s.dashboard.Select(req.SessionID, req.Name, req.Region)
	if err != nil {
		return nil, toStatus(err)
	}
	return &snap, nil
}

func (s *Server) StreamEvents(req *StreamEventsRequest, stream grpc.ServerStream) error {
	id, ch := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(id)

	slog.Info("client subscribed to event stream", "subscriber_id", id, "session", req.SessionID)

	for {
		select {
		case <-stream.Context().Done():
			slog.Info("client disconnected from event stream", "subscriber_id", id)
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}

			if req.SessionID != "" && ev.SessionID != req.SessionID {
				continue
			}
			if len(req.Types) > 0 && !slices.Contains(req.Types, ev.Type) {
				continue
			}

			if err := stream.SendMsg(&ev); err != nil {
				slog.Error("failed to send event to stream", "error", err, "subscriber_id", id)
				return err
			}
		}
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, dashboard.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, dashboard.ErrLocationNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Errorf(codes.Internal, "dashboard error: %v", err)
	}
}
