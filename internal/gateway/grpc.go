// ABOUTME: gRPC server carrying the standard grpc.health.v1 service
// ABOUTME: Reports SERVING once the store is open and NOT_SERVING during shutdown

package gateway

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// HealthServiceName is the service name reported alongside the overall ("") status.
const HealthServiceName = "ecg.Gateway"

// newHealthGRPCServer creates a gRPC server with the health service registered.
// The health status starts as NOT_SERVING.
func newHealthGRPCServer() (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(server, hs)

	return server, hs
}

// setServing flips both health entries. No-op without a gRPC server.
func (g *Gateway) setServing(serving bool) {
	if g.health == nil {
		return
	}
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(HealthServiceName, status)
}
