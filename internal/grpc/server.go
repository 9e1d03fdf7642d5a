// Package grpc exposes the standard gRPC health service. The engine reports
// SERVING once a snapshot holding data has been published.
package grpc

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/mr1hm/go-disaster-impact/internal/snapshot"
)

// ServiceName is the health service key clients query for the engine.
const ServiceName = "impact.v1.ImpactEngine"

type Server struct {
	health     *health.Server
	grpcServer *grpc.Server
}

func NewServer() *Server {
	h := health.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, h)
	reflection.Register(gs)

	return &Server{health: h, grpcServer: gs}
}

// Observe updates the serving status from a freshly published snapshot.
func (s *Server) Observe(snap *snapshot.Snapshot) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if c := snap.Counts(); c.Disasters > 0 || c.CensusBlocks > 0 || c.Sites > 0 {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
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
