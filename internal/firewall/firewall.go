package firewall

import (
	"net/http"
	"net/netip"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vyrodovalexey/edgegate/internal/middleware"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Verdict is the firewall outcome for one request.
type Verdict string

// Verdicts.
const (
	VerdictPass   Verdict = "pass"
	VerdictReject Verdict = "reject"
)

// Firewall evaluates client addresses against an allow-list.
type Firewall struct {
	allow     *AllowList
	extractor *middleware.ClientIPExtractor
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	logger    observability.Logger
}

// Option configures a Firewall.
type Option func(*Firewall)

// WithTrustedProxies makes the firewall read the client address from
// X-Forwarded-For when the direct peer is one of the given networks.
func WithTrustedProxies(proxies []string) Option {
	return func(f *Firewall) {
		f.extractor = middleware.NewClientIPExtractor(proxies)
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Firewall) {
		f.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(f *Firewall) {
		if t != nil {
			f.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(f *Firewall) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a firewall. A nil or empty allow-list is a provisioning
// error. Entries that allow a whole address family are accepted with a
// warning.
func New(allow *AllowList, opts ...Option) (*Firewall, error) {
	if allow == nil || allow.Len() == 0 {
		return nil, util.NewProvisioningError("firewall.allowList", "allow-list must not be empty")
	}

	f := &Firewall{
		allow:     allow,
		extractor: middleware.NewClientIPExtractor(nil),
		tracer:    observability.NopTracer(),
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}

	for _, e := range allow.AllowAllEntries() {
		f.logger.Warn("allow-list entry admits every address of its family",
			observability.String("entry", e.String()),
		)
	}

	return f, nil
}

// AllowList returns the allow-list the firewall enforces.
func (f *Firewall) AllowList() *AllowList {
	return f.allow
}

// Evaluate returns the verdict for addr. An invalid address is rejected.
func (f *Firewall) Evaluate(addr netip.Addr) Verdict {
	if f.allow.Contains(addr) {
		return VerdictPass
	}
	return VerdictReject
}

// EvaluateString parses addr and evaluates it. Unparsable input is
// rejected.
func (f *Firewall) EvaluateString(addr string) Verdict {
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return VerdictReject
	}
	return f.Evaluate(a)
}

// Middleware gates next behind the firewall.
func (f *Firewall) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := f.tracer.StartStageSpan(r.Context(), util.StageFirewallChecked)

		addr, ok := f.extractor.Extract(r)
		verdict := VerdictReject
		if ok {
			verdict = f.Evaluate(addr)
		}

		span.SetAttributes(
			attribute.String("client.address", addr.String()),
			attribute.String("edgegate.firewall.verdict", string(verdict)),
		)
		span.End()

		f.metrics.RecordFirewallVerdict(string(verdict))

		if verdict == VerdictReject {
			f.metrics.RecordDenial(util.StageFirewallChecked)
			f.logger.WithContext(ctx).Debug("firewall rejected request",
				observability.String("stage", util.StageFirewallChecked.String()),
				observability.String("client_ip", addr.String()),
				observability.String("remote_addr", r.RemoteAddr),
			)
			util.WriteDenied(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(util.ContextWithClientIP(r.Context(), addr.String())))
	})
}
