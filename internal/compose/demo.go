package compose

// Service names in the demo topology.
const (
	EngineService     = "engine"
	CollectorService  = "jaeger"
	MiddlewareService = "vecshard"
)

// Demo returns the reference three-service topology: one vector-engine node,
// a tracing collector and the sharding middleware in front of them. The
// engine publishes no host ports; all traffic enters through the middleware.
func Demo() *Descriptor {
	return &Descriptor{
		Version: "2.3",
		Services: map[string]Service{
			EngineService: {
				Image:   "qdrant/qdrant:v1.12.4",
				Restart: "always",
				Volumes: []string{"shard-data:/qdrant/storage"},
			},
			CollectorService: {
				Image:   "jaegertracing/all-in-one:1.60",
				Restart: "always",
				Ports: []string{
					"5775:5775/udp",
					"16686:16686",
					"9441:9441",
				},
				Environment: Environment{
					"COLLECTOR_ZIPKIN_HTTP_PORT": "9411",
				},
			},
			MiddlewareService: {
				Image:   "kailascloud/vecshard:latest",
				Restart: "always",
				Ports: []string{
					"19530:19531",
					"19532:19532",
				},
				Environment: Environment{
					"SERVER_PORT":            "19531",
					"WOSERVER":               "tcp://engine:6334",
					"SD_STATIC_HOSTS":        "engine",
					"TRACING_TYPE":           "jaeger",
					"TRACING_REPORTING_HOST": "jaeger",
					"TRACING_REPORTING_PORT": "4317",
				},
				Volumes:   []string{"shard-data:/var/lib/vecshard"},
				DependsOn: []string{EngineService, CollectorService},
			},
		},
		Volumes: map[string]Volume{
			"shard-data": nil,
		},
	}
}
