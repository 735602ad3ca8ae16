package grpc

import (
	"context"
	"errors"
	"net"
	"testing"

	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/internal/sample"
	"github.com/dysodeng/discovery/metadata"
	serviceregistryv1 "github.com/dysodeng/discovery/proto/serviceregistry/v1"
	"github.com/dysodeng/discovery/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	grpcmetadata "google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protowire"
)

var helloQuery = metadata.NewServiceQuery("sdv.samples", "hello-world", "1.0.0.0")

func startRegistry(t *testing.T, srv serviceregistryv1.ServiceRegistryServer) transport.Option {
	t.Helper()

	s := sample.NewBufServer()
	s.RegisterService(func(r grpc.ServiceRegistrar) {
		serviceregistryv1.RegisterServiceRegistryServer(r, srv)
	})
	go func() { _ = s.Serve() }()
	t.Cleanup(s.Stop)

	return transport.WithGrpcDialOption(grpc.WithContextDialer(s.Dialer()))
}

func TestRegistry_ResolveFound(t *testing.T) {
	static := sample.NewStaticRegistry()
	static.Add(helloQuery, metadata.ServiceDescriptor{
		Location:          "http://127.0.0.1:50064",
		ProtocolKind:      "grpc+proto",
		ProtocolReference: "hello_world_service.v1.proto",
	})

	r, err := NewRegistry("http://0.0.0.0:50000", startRegistry(t, static))
	require.NoError(t, err)
	defer r.Close()

	d, err := r.Resolve(context.Background(), helloQuery)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "http://127.0.0.1:50064", d.Location)
	assert.Equal(t, "grpc+proto", d.ProtocolKind)
	assert.Equal(t, "hello_world_service.v1.proto", d.ProtocolReference)
	assert.Equal(t, "hello-world", d.Name)
}

func TestRegistry_ResolveNotFound(t *testing.T) {
	for _, asError := range []bool{false, true} {
		static := sample.NewStaticRegistry()
		static.NotFoundAsError = asError

		r, err := NewRegistry("", startRegistry(t, static))
		require.NoError(t, err)

		d, err := r.Resolve(context.Background(), helloQuery)
		assert.NoError(t, err)
		assert.Nil(t, d)
		_ = r.Close()
	}
}

type malformedRegistry struct {
	serviceregistryv1.UnimplementedServiceRegistryServer
}

func (malformedRegistry) Discover(context.Context, *serviceregistryv1.DiscoverRequest) (*serviceregistryv1.DiscoverResponse, error) {
	return &serviceregistryv1.DiscoverResponse{Service: &serviceregistryv1.ServiceMetadata{CommunicationKind: "grpc+proto"}}, nil
}

func TestRegistry_ResolveMalformedResponse(t *testing.T) {
	r, err := NewRegistry("", startRegistry(t, malformedRegistry{}))
	require.NoError(t, err)
	defer r.Close()

	d, err := r.Resolve(context.Background(), helloQuery)
	assert.Nil(t, d)
	assert.True(t, rpcError.IsCode(err, rpcError.RegistryProtocolError), "got %v", err)
}

func TestRegistry_ResolveUnimplemented(t *testing.T) {
	r, err := NewRegistry("", startRegistry(t, serviceregistryv1.UnimplementedServiceRegistryServer{}))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Resolve(context.Background(), helloQuery)
	assert.True(t, rpcError.IsCode(err, rpcError.RegistryProtocolError), "got %v", err)
}

func TestRegistry_ResolveUnreachable(t *testing.T) {
	refuse := func(context.Context, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	r, err := NewRegistry("http://0.0.0.0:50000", transport.WithGrpcDialOption(grpc.WithContextDialer(refuse)))
	require.NoError(t, err)
	defer r.Close()

	d, err := r.Resolve(context.Background(), helloQuery)
	assert.Nil(t, d)
	assert.True(t, rpcError.IsCode(err, rpcError.RegistryUnreachable), "got %v", err)
}

func TestRegistry_ResolveFromProtobufRegistry(t *testing.T) {
	var service []byte
	for i, v := range []string{"sdv.samples", "hello-world", "1.0.0.0", "http://127.0.0.1:50064", "grpc+proto", "hello_world_service.v1.proto"} {
		service = protowire.AppendTag(service, protowire.Number(i+1), protowire.BytesType)
		service = protowire.AppendString(service, v)
	}
	var reply []byte
	reply = protowire.AppendTag(reply, 1, protowire.BytesType)
	reply = protowire.AppendBytes(reply, service)

	var (
		gotMethod      string
		gotContentType []string
		gotBody        []byte
	)
	s := sample.NewRawBufServer(func(ctx context.Context, method string, req []byte) ([]byte, error) {
		md, _ := grpcmetadata.FromIncomingContext(ctx)
		gotMethod, gotContentType, gotBody = method, md.Get("content-type"), req
		return reply, nil
	})
	go func() { _ = s.Serve() }()
	t.Cleanup(s.Stop)

	r, err := NewRegistry("", transport.WithGrpcDialOption(grpc.WithContextDialer(s.Dialer())))
	require.NoError(t, err)
	defer r.Close()

	d, err := r.Resolve(context.Background(), helloQuery)
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, "/service_registry.v1.ServiceRegistry/Discover", gotMethod)
	assert.Equal(t, []string{"application/grpc+proto"}, gotContentType)
	assert.Equal(t, []byte("\x0a\x0bsdv.samples\x12\x0bhello-world\x1a\x071.0.0.0"), gotBody)
	assert.Equal(t, "http://127.0.0.1:50064", d.Location)
	assert.Equal(t, metadata.Protocol{Kind: "grpc+proto", Reference: "hello_world_service.v1.proto"}, d.Protocol())
}

func TestRegistry_ResolveEmptyProtobufReply(t *testing.T) {
	s := sample.NewRawBufServer(func(context.Context, string, []byte) ([]byte, error) {
		return []byte{}, nil
	})
	go func() { _ = s.Serve() }()
	t.Cleanup(s.Stop)

	r, err := NewRegistry("", transport.WithGrpcDialOption(grpc.WithContextDialer(s.Dialer())))
	require.NoError(t, err)
	defer r.Close()

	d, err := r.Resolve(context.Background(), helloQuery)
	assert.NoError(t, err)
	assert.Nil(t, d)
}
