package observability

import "context"

type routeRecorderKey struct{}

// routeRecorder carries the matched route back up to the metrics
// middleware. It is allocated per request.
type routeRecorder struct {
	name string
}

func withRouteRecorder(ctx context.Context, r *routeRecorder) context.Context {
	return context.WithValue(ctx, routeRecorderKey{}, r)
}

// RecordRoute reports the matched route key for the current request to
// the enclosing MetricsMiddleware, if any.
func RecordRoute(ctx context.Context, route string) {
	if r, ok := ctx.Value(routeRecorderKey{}).(*routeRecorder); ok {
		r.name = route
	}
}
