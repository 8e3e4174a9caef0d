package events

// EventType represents different event types
type EventType string

const (
	PortfolioChanged EventType = "PORTFOLIO_CHANGED"
	CatalogRefreshed EventType = "CATALOG_REFRESHED"
	SyncCompleted    EventType = "SYNC_COMPLETED"
	SyncDiscarded    EventType = "SYNC_DISCARDED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)
