package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/mr1hm/go-disaster-dashboard/internal/dashboard"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

const ServiceName = "dashboard.v1.DashboardService"

type SearchRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type SearchResponse struct {
	Results     []models.NamedLocation `json:"results"`
	ShowResults bool                   `json:"show_results"`
}

type SnapshotRequest struct {
	SessionID string `json:"session_id"`
}

type SelectRequest struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Region    string `json:"region"`
}

type StreamEventsRequest struct {
	// SessionID limits the stream to one session; empty streams all.
	SessionID string                `json:"session_id,omitempty"`
	Types     []dashboard.EventType `json:"types,omitempty"`
}

type DashboardServiceServer interface {
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	GetSnapshot(context.Context, *SnapshotRequest) (*dashboard.Snapshot, error)
	Select(context.Context, *SelectRequest) (*dashboard.Snapshot, error)
	StreamEvents(*StreamEventsRequest, grpc.ServerStream) error
}

func RegisterDashboardServiceServer(s grpc.ServiceRegistrar, srv DashboardServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DashboardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Search", Handler: searchHandler},
		{MethodName: "GetSnapshot", Handler: getSnapshotHandler},
		{MethodName: "Select", Handler: selectHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamEvents", Handler: streamEventsHandler, ServerStreams: true},
	},
	Metadata: "dashboard/v1/dashboard.proto",
}

func unary[Req any, Resp any](
	method string,
	call func(DashboardServiceServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DashboardServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DashboardServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	searchHandler      = unary("Search", DashboardServiceServer.Search)
	getSnapshotHandler = unary("GetSnapshot", DashboardServiceServer.GetSnapshot)
	selectHandler      = unary("Select", DashboardServiceServer.Select)
)

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(StreamEventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DashboardServiceServer).StreamEvents(in, stream)
}

// Client calls DashboardService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}

func (c *Client) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Search", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSnapshot(ctx context.Context, in *SnapshotRequest, opts ...grpc.CallOption) (*dashboard.Snapshot, error) {
	out := new(dashboard.Snapshot)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetSnapshot", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Select(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*dashboard.Snapshot, error) {
	out := new(dashboard.Snapshot)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Select", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// EventStream receives events from StreamEvents.
type EventStream struct {
	grpc.ClientStream
}

func (s *EventStream) Recv() (*dashboard.Event, error) {
	ev := new(dashboard.Event)
	if err := s.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Client) StreamEvents(ctx context.Context, in *StreamEventsRequest, opts ...grpc.CallOption) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], "/"+ServiceName+"/StreamEvents", callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{ClientStream: stream}, nil
}
