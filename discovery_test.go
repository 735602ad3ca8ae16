package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dysodeng/discovery/contracts"
	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/internal/sample"
	"github.com/dysodeng/discovery/metadata"
	grpcregistry "github.com/dysodeng/discovery/naming/grpc"
	"github.com/dysodeng/discovery/protocol"
	grpcprotocol "github.com/dysodeng/discovery/protocol/grpc"
	helloworldv1 "github.com/dysodeng/discovery/proto/helloworld/v1"
	serviceregistryv1 "github.com/dysodeng/discovery/proto/serviceregistry/v1"
	"github.com/dysodeng/discovery/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

var helloQuery = metadata.NewServiceQuery("sdv.samples", "hello-world", "1.0.0.0")

// fakeRegistry 按查询返回固定的服务描述
type fakeRegistry struct {
	mu       sync.Mutex
	services map[metadata.ServiceQuery]metadata.ServiceDescriptor
	err      error
	calls    int
}

func (f *fakeRegistry) Resolve(_ context.Context, query metadata.ServiceQuery) (*metadata.ServiceDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.services[query]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeRegistry) Close() error { return nil }

// recordingStrategy 记录调用，返回 location 与请求
type recordingStrategy struct {
	proto metadata.Protocol
	calls atomic.Int32
	err   error
}

func (s *recordingStrategy) Protocol() metadata.Protocol { return s.proto }

func (s *recordingStrategy) Invoke(_ context.Context, location string, request any) (any, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return fmt.Sprintf("%s:%v", location, request), nil
}

func newDiscovery(t *testing.T, registry *fakeRegistry, strategies ...contracts.InvocationStrategy) ServiceDiscovery {
	t.Helper()

	entries := make([]protocol.Entry, 0, len(strategies))
	for _, s := range strategies {
		entries = append(entries, protocol.For(s))
	}
	table, err := protocol.NewTable(entries...)
	require.NoError(t, err)

	return NewServiceDiscovery(registry, protocol.NewValidator(table))
}

func TestDiscover_NoProviderFound(t *testing.T) {
	echo := &recordingStrategy{proto: metadata.Protocol{Kind: "K", Reference: "R"}}
	d := newDiscovery(t, &fakeRegistry{}, echo)

	r, err := d.Discover(context.Background(), helloQuery, "X")

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoProvider, r.Outcome)
	assert.Equal(t, StateDone, r.State)
	assert.True(t, r.NoProvider())
	assert.Nil(t, r.Descriptor)
	assert.Equal(t, "register a provider for the requested service", r.OperatorAction())
	assert.Zero(t, echo.calls.Load())
}

func TestDiscover_RoundTrip(t *testing.T) {
	echo := &recordingStrategy{proto: metadata.Protocol{Kind: "K", Reference: "R"}}
	registry := &fakeRegistry{services: map[metadata.ServiceQuery]metadata.ServiceDescriptor{
		helloQuery: {Location: "L", ProtocolKind: "K", ProtocolReference: "R"},
	}}
	d := newDiscovery(t, registry, echo)

	r, err := d.Discover(context.Background(), helloQuery, "X")

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, r.Outcome)
	assert.Equal(t, "L:X", r.Response)
	assert.Equal(t, int32(1), echo.calls.Load())
	assert.NotEmpty(t, r.RunID)
	assert.Contains(t, r.Durations, StateQuerying)
	assert.Contains(t, r.Durations, StateValidating)
	assert.Contains(t, r.Durations, StateInvoking)
}

func TestDiscover_IncompatibleProtocol(t *testing.T) {
	tests := map[string]metadata.ServiceDescriptor{
		"unknown kind":         {Location: "L", ProtocolKind: "http+json", ProtocolReference: "R"},
		"reference mismatch":   {Location: "L", ProtocolKind: "K", ProtocolReference: "R2"},
		"unknown kind and ref": {Location: "L", ProtocolKind: "X", ProtocolReference: "Y"},
	}

	for name, descriptor := range tests {
		t.Run(name, func(t *testing.T) {
			echo := &recordingStrategy{proto: metadata.Protocol{Kind: "K", Reference: "R"}}
			registry := &fakeRegistry{services: map[metadata.ServiceQuery]metadata.ServiceDescriptor{helloQuery: descriptor}}

			r, err := newDiscovery(t, registry, echo).Discover(context.Background(), helloQuery, "X")

			assert.True(t, rpcError.IsCode(err, rpcError.IncompatibleProtocol), "got %v", err)
			assert.Equal(t, OutcomeFailure, r.Outcome)
			assert.Equal(t, StateValidating, r.FailedIn)
			assert.True(t, r.Incompatible())
			assert.Equal(t, "fix the protocol mismatch between provider and consumer", r.OperatorAction())
			assert.Zero(t, echo.calls.Load())
		})
	}
}

func TestDiscover_RegistryErrorsPropagateUnchanged(t *testing.T) {
	for _, code := range []rpcError.ErrorCode{rpcError.RegistryUnreachable, rpcError.RegistryProtocolError} {
		want := rpcError.New(code, "registry failure")
		echo := &recordingStrategy{proto: metadata.Protocol{Kind: "K", Reference: "R"}}

		r, err := newDiscovery(t, &fakeRegistry{err: want}, echo).Discover(context.Background(), helloQuery, "X")

		assert.Same(t, want, err)
		assert.Same(t, want, r.Err)
		assert.Equal(t, StateQuerying, r.FailedIn)
		assert.False(t, r.Incompatible())
		assert.Zero(t, echo.calls.Load())
	}
}

func TestDiscover_InvocationErrorsPropagateUnchanged(t *testing.T) {
	for _, code := range []rpcError.ErrorCode{rpcError.ConnectFailed, rpcError.CallFailed} {
		want := rpcError.New(code, "provider failure")
		echo := &recordingStrategy{proto: metadata.Protocol{Kind: "K", Reference: "R"}, err: want}
		registry := &fakeRegistry{services: map[metadata.ServiceQuery]metadata.ServiceDescriptor{
			helloQuery: {Location: "L", ProtocolKind: "K", ProtocolReference: "R"},
		}}

		r, err := newDiscovery(t, registry, echo).Discover(context.Background(), helloQuery, "X")

		assert.Same(t, want, err)
		assert.Equal(t, StateInvoking, r.FailedIn)
		assert.Equal(t, "check provider health", r.OperatorAction())
	}
}

func TestDiscover_InvalidQuery(t *testing.T) {
	registry := &fakeRegistry{}

	r, err := newDiscovery(t, registry).Discover(context.Background(), metadata.ServiceQuery{Name: "hello-world"}, "X")

	assert.True(t, rpcError.IsCode(err, rpcError.InvalidArgument))
	assert.Equal(t, OutcomeFailure, r.Outcome)
	assert.Zero(t, registry.calls)
}

func TestDiscover_CanceledRunDoesNotStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	registry := &fakeRegistry{}
	r, err := newDiscovery(t, registry).Discover(ctx, helloQuery, "X")

	assert.True(t, rpcError.IsCode(err, rpcError.Canceled))
	assert.Equal(t, StateQuerying, r.FailedIn)
	assert.Zero(t, registry.calls)
}

// cancelingRegistry 在返回服务描述的同时取消调用方的 context
type cancelingRegistry struct {
	fakeRegistry
	cancel context.CancelFunc
}

func (c *cancelingRegistry) Resolve(ctx context.Context, query metadata.ServiceQuery) (*metadata.ServiceDescriptor, error) {
	c.cancel()
	return &metadata.ServiceDescriptor{Location: "L", ProtocolKind: "K", ProtocolReference: "R"}, nil
}

func TestDiscover_CanceledAfterQueryStopsLaterPhases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	echo := &recordingStrategy{proto: metadata.Protocol{Kind: "K", Reference: "R"}}
	table := protocol.MustNewTable(protocol.For(echo))
	d := NewServiceDiscovery(&cancelingRegistry{cancel: cancel}, protocol.NewValidator(table))

	r, err := d.Discover(ctx, helloQuery, "X")

	assert.True(t, rpcError.IsCode(err, rpcError.Canceled))
	assert.Equal(t, StateValidating, r.FailedIn)
	assert.Zero(t, echo.calls.Load())
}

func TestDiscover_ConcurrentRunsAreIndependent(t *testing.T) {
	const n = 32

	echo := &recordingStrategy{proto: metadata.Protocol{Kind: "K", Reference: "R"}}
	registry := &fakeRegistry{services: make(map[metadata.ServiceQuery]metadata.ServiceDescriptor, n)}
	for i := 0; i < n; i++ {
		q := metadata.NewServiceQuery("sdv.samples", fmt.Sprintf("svc-%d", i), "1.0.0.0")
		registry.services[q] = metadata.ServiceDescriptor{Location: fmt.Sprintf("L%d", i), ProtocolKind: "K", ProtocolReference: "R"}
	}
	d := newDiscovery(t, registry, echo)

	results := make([]*Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := metadata.NewServiceQuery("sdv.samples", fmt.Sprintf("svc-%d", i), "1.0.0.0")
			results[i], _ = d.Discover(context.Background(), q, i)
		}(i)
	}
	wg.Wait()

	runIDs := make(map[string]struct{}, n)
	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, OutcomeSuccess, r.Outcome)
		assert.Equal(t, fmt.Sprintf("L%d:%d", i, i), r.Response)
		runIDs[r.RunID] = struct{}{}
	}
	assert.Len(t, runIDs, n)
	assert.Equal(t, int32(n), echo.calls.Load())
}

// startSample 在内存连接上启动示例注册中心与示例服务
func startSample(t *testing.T, descriptor metadata.ServiceDescriptor) (*sample.HelloWorld, transport.Option) {
	t.Helper()

	static := sample.NewStaticRegistry()
	static.Add(helloQuery, descriptor)
	hello := &sample.HelloWorld{}

	s := sample.NewBufServer()
	s.RegisterService(func(r grpc.ServiceRegistrar) {
		serviceregistryv1.RegisterServiceRegistryServer(r, static)
		helloworldv1.RegisterHelloWorldServer(r, hello)
	})
	go func() { _ = s.Serve() }()
	t.Cleanup(s.Stop)

	return hello, transport.WithGrpcDialOption(grpc.WithContextDialer(s.Dialer()))
}

func newHelloDiscovery(t *testing.T, dialer transport.Option) ServiceDiscovery {
	t.Helper()

	registry, err := grpcregistry.NewRegistry(grpcregistry.DefaultAddress, dialer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })

	table := protocol.MustNewTable(protocol.For(grpcprotocol.NewHelloWorld(dialer)))
	return NewServiceDiscovery(registry, protocol.NewValidator(table))
}

func TestDiscover_HelloWorld(t *testing.T) {
	hello, dialer := startSample(t, metadata.ServiceDescriptor{
		Location:          "addr1",
		ProtocolKind:      "grpc+proto",
		ProtocolReference: "hello_world_service.v1.proto",
	})

	r, err := newHelloDiscovery(t, dialer).Discover(context.Background(), helloQuery, &helloworldv1.HelloRequest{Name: "World"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, r.Outcome)
	assert.Equal(t, "addr1", r.Descriptor.Location)
	assert.Equal(t, "Hello, World", r.Response.(*helloworldv1.HelloResponse).GetMessage())
	assert.Equal(t, 1, hello.Calls())
}

func TestDiscover_HelloWorldV2IsIncompatible(t *testing.T) {
	hello, dialer := startSample(t, metadata.ServiceDescriptor{
		Location:          "addr1",
		ProtocolKind:      "grpc+proto",
		ProtocolReference: "hello_world_service.v2.proto",
	})

	r, err := newHelloDiscovery(t, dialer).Discover(context.Background(), helloQuery, &helloworldv1.HelloRequest{Name: "World"})

	assert.True(t, rpcError.IsCode(err, rpcError.IncompatibleProtocol), "got %v", err)
	assert.True(t, r.Incompatible())
	assert.Zero(t, hello.Calls())
}

func TestDiscover_HelloWorldNotRegistered(t *testing.T) {
	hello, dialer := startSample(t, metadata.ServiceDescriptor{
		Location:          "addr1",
		ProtocolKind:      "grpc+proto",
		ProtocolReference: "hello_world_service.v1.proto",
	})

	q := metadata.NewServiceQuery("sdv.samples", "hello-world", "2.0.0.0")
	r, err := newHelloDiscovery(t, dialer).Discover(context.Background(), q, &helloworldv1.HelloRequest{Name: "World"})

	require.NoError(t, err)
	assert.True(t, r.NoProvider())
	assert.Zero(t, hello.Calls())
}

func TestOutcomeAndState_String(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "no_provider", OutcomeNoProvider.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "querying", StateQuerying.String())
	assert.Equal(t, "validating", StateValidating.String())
	assert.Equal(t, "invoking", StateInvoking.String())
	assert.Equal(t, "done", StateDone.String())
}

// invokerFunc 替换默认协议调度器
type invokerFunc func(ctx context.Context, strategy contracts.InvocationStrategy, descriptor *metadata.ServiceDescriptor, request any) (any, error)

func (f invokerFunc) Invoke(ctx context.Context, strategy contracts.InvocationStrategy, descriptor *metadata.ServiceDescriptor, request any) (any, error) {
	return f(ctx, strategy, descriptor, request)
}

func TestDiscover_WithInvoker(t *testing.T) {
	echo := &recordingStrategy{proto: metadata.Protocol{Kind: "K", Reference: "R"}}
	registry := &fakeRegistry{services: map[metadata.ServiceQuery]metadata.ServiceDescriptor{
		helloQuery: {Location: "L", ProtocolKind: "K", ProtocolReference: "R"},
	}}
	table := protocol.MustNewTable(protocol.For(echo))

	var got contracts.InvocationStrategy
	d := NewServiceDiscovery(registry, protocol.NewValidator(table), WithInvoker(invokerFunc(
		func(_ context.Context, strategy contracts.InvocationStrategy, descriptor *metadata.ServiceDescriptor, request any) (any, error) {
			got = strategy
			return descriptor.Location + "|" + request.(string), nil
		},
	)))

	r, err := d.Discover(context.Background(), helloQuery, "X")
	require.NoError(t, err)
	assert.Equal(t, "L|X", r.Response)
	assert.Same(t, echo, got)
	assert.Zero(t, echo.calls.Load())

	// nil 保留默认调度器
	r, err = NewServiceDiscovery(registry, protocol.NewValidator(table), WithInvoker(nil)).Discover(context.Background(), helloQuery, "X")
	require.NoError(t, err)
	assert.Equal(t, "L:X", r.Response)
}
