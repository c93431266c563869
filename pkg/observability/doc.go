/*
Package observability turns engine lifecycle hooks into Prometheus metrics
and structured audit logs.

Metrics and log hooks compose with Chain:

	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := observability.Chain(m.Hooks(), observability.LogHooks(logger))
	gw := ussdflow.New(sessions, executor, ussdflow.WithLifecycleHooks(hooks))

Evictions done by the sweeper are counted through Metrics.OnEvict, which
fits session.WithEvictHook.
*/
package observability
