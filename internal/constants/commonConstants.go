package constants

import "time"

type (
	RequestSource string
	APIStatus     string
	CachePrefix   string
)

const (
	RequestSourceAPI RequestSource = "API"
	RequestSourceCLI RequestSource = "CLI"

	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixOFP       CachePrefix = "ofp:"
	CachePrefixUplinkJob CachePrefix = "uplink:job:"
)

// Redis stream used for queued uplink runs
const (
	UplinkStream        = "uplink:jobs"
	UplinkConsumerGroup = "uplink-workers"
)

const (
	DefaultOFPCacheTTL = 10 * time.Minute
	DefaultJobTTL      = 24 * time.Hour
)

// Token scopes. Admin implies every other scope.
const (
	ScopeUplink = "uplink"
	ScopeAdmin  = "admin"
)
