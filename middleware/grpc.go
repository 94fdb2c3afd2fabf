// The concrete gRPC interceptors live in the grpcmw sub-package to
// avoid pulling google.golang.org/grpc into projects that only need
// the net/http middleware in this package.
//
// Import:
//
//	import "github.com/krishna-kudari/redlock/middleware/grpcmw"
//
// Usage:
//
//	coord, _ := redlock.New(stores)
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(grpcmw.UnaryServerInterceptor(coord, grpcmw.KeyByFullMethod)),
//	)
//
// Key extractors:
//
//	grpcmw.KeyByFullMethod      — the RPC's full method name
//	grpcmw.KeyByMetadata("key") — value from incoming metadata
//
// See package github.com/krishna-kudari/redlock/middleware/grpcmw for the full API.
package middleware
