package application

const (
	ApplicationTagKey = "application"
	ServiceTagKey     = "service"
	ClusterTagKey     = "cluster"
	ShardTagKey       = "shard"
	ComponentTagKey   = "component"

	// NullTagValue is reported for optional identity tags that were never
	// assigned.
	NullTagValue = "none"
)

// Tags is the low-cardinality identity of the reporting application. It is
// attached as point tags to every derived metric and distribution.
type Tags struct {
	Application string
	Service     string
	Cluster     string
	Shard       string
	Custom      map[string]string
}

// ToPointTags renders the identity as metric point tags, substituting
// NullTagValue for the optional cluster and shard.
func (t Tags) ToPointTags() map[string]string {
	pointTags := make(map[string]string, 4+len(t.Custom))
	for key, value := range t.Custom {
		pointTags[key] = value
	}
	pointTags[ApplicationTagKey] = t.Application
	pointTags[ServiceTagKey] = t.Service
	pointTags[ClusterTagKey] = orNull(t.Cluster)
	pointTags[ShardTagKey] = orNull(t.Shard)
	return pointTags
}

// MetricPrefix is the "<application>.<service>." prefix shared by every
// derived metric name.
func (t Tags) MetricPrefix() string {
	return t.Application + "." + t.Service + "."
}

func orNull(value string) string {
	if value == "" {
		return NullTagValue
	}
	return value
}
