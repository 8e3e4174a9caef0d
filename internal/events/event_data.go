package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PortfolioChangedData contains data for PortfolioChanged events
type PortfolioChangedData struct {
	Action   string   `json:"action"` // "add", "remove", "reorder"
	CoinID   string   `json:"coin_id"`
	Holdings []string `json:"holdings"`
	Resync   bool     `json:"resync"`
}

// EventType returns the event type for PortfolioChangedData
func (d *PortfolioChangedData) EventType() EventType {
	return PortfolioChanged
}

// CatalogRefreshedData contains data for CatalogRefreshed events
type CatalogRefreshedData struct {
	Entries        int     `json:"entries"`
	TotalMarketCap float64 `json:"total_market_cap"`
	Version        uint64  `json:"version"`
}

// EventType returns the event type for CatalogRefreshedData
func (d *CatalogRefreshedData) EventType() EventType {
	return CatalogRefreshed
}

// SyncCompletedData contains data for SyncCompleted events
type SyncCompletedData struct {
	CycleID     string  `json:"cycle_id"`
	Seq         uint64  `json:"seq"`
	Coins       int     `json:"coins"`
	Prices      int     `json:"prices"`
	Logos       int     `json:"logos"`
	PricesStale bool    `json:"prices_stale"`
	Duration    float64 `json:"duration"`
}

// EventType returns the event type for SyncCompletedData
func (d *SyncCompletedData) EventType() EventType {
	return SyncCompleted
}

// SyncDiscardedData contains data for SyncDiscarded events
type SyncDiscardedData struct {
	CycleID    string `json:"cycle_id"`
	Seq        uint64 `json:"seq"`
	AppliedSeq uint64 `json:"applied_seq"`
}

// EventType returns the event type for SyncDiscardedData
func (d *SyncDiscardedData) EventType() EventType {
	return SyncDiscarded
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context string                 `json:"context,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// EventWithData represents an event with typed data
type EventWithData struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// UnmarshalJSON decodes Data into the concrete type matching Type.
func (e *EventWithData) UnmarshalJSON(data []byte) error {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if len(aux.Data) == 0 {
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case PortfolioChanged:
		eventData = &PortfolioChangedData{}
	case CatalogRefreshed:
		eventData = &CatalogRefreshedData{}
	case SyncCompleted:
		eventData = &SyncCompletedData{}
	case SyncDiscarded:
		eventData = &SyncDiscardedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	default:
		var rawData map[string]interface{}
		if err := json.Unmarshal(aux.Data, &rawData); err != nil {
			return err
		}
		e.Data = &GenericEventData{Type: aux.Type, Data: rawData}
		return nil
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}
