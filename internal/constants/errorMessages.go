package constants

const (
	StatusError          = "Error"
	StatusUplinkDone     = "Route uplinked"
	StatusUplinkFailed   = "Route uplink failed"
	StatusUplinkQueued   = "Route uplink queued"
	StatusJobNotFound    = "Uplink job not found"
	StatusInvalidRequest = "Invalid request"
)

const (
	MsgPilotIDRequired   = "Pilot ID is required"
	MsgNavlogEmpty       = "Navigation log contains no fixes"
	MsgQueueUnavailable  = "Uplink queue is not configured"
	MsgHistoryNotEnabled = "Uplink history is not configured"
)
