package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/bagz/internal/di"
	"github.com/aristath/bagz/internal/scheduler"
)

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status             string  `json:"status"`
	CPUPercent         float64 `json:"cpu_percent"`
	RAMPercent         float64 `json:"ram_percent"`
	Holdings           int     `json:"holdings"`
	CatalogEntries     int     `json:"catalog_entries"`
	CatalogVersion     uint64  `json:"catalog_version"`
	CatalogRefreshedAt *string `json:"catalog_refreshed_at"`
	SyncSeq            uint64  `json:"sync_seq"`
	LastSync           *string `json:"last_sync"`
}

// DBInfo represents database information
type DBInfo struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	PageCount int64   `json:"page_count"`
	PageSize  int64   `json:"page_size"`
	Error     string  `json:"error,omitempty"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	container *di.Container
	log       zerolog.Logger

	jobsMu sync.RWMutex
	jobs   map[string]scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(container *di.Container, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container: container,
		log:       log.With().Str("handler", "system").Logger(),
		jobs:      make(map[string]scheduler.Job),
	}
}

// SetJobs registers jobs that can be triggered by name
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	h.jobsMu.Lock()
	defer h.jobsMu.Unlock()
	for _, job := range jobs {
		if job == nil {
			continue
		}
		h.jobs[job.Name()] = job
	}
}

// GetSystemStatusSnapshot assembles the current system status
func (h *SystemHandlers) GetSystemStatusSnapshot() SystemStatusResponse {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:         "healthy",
		CPUPercent:     cpuPercent,
		RAMPercent:     ramPercent,
		Holdings:       len(h.container.Portfolio.Holdings()),
		CatalogEntries: h.container.CatalogCache.Len(),
		CatalogVersion: h.container.CatalogCache.Version(),
		SyncSeq:        h.container.Synchronizer.LastAppliedSeq(),
	}

	if t := h.container.CatalogCache.RefreshedAt(); !t.IsZero() {
		formatted := t.Format(time.RFC3339)
		response.CatalogRefreshedAt = &formatted
	}
	if t := h.container.Synchronizer.LastSync(); !t.IsZero() {
		formatted := t.Format(time.RFC3339)
		response.LastSync = &formatted
	}
	if response.CatalogEntries == 0 {
		response.Status = "degraded"
	}

	return response
}

// HandleSystemStatus returns system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.GetSystemStatusSnapshot())
}

// HandleDatabaseStats returns file and page statistics for each database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	dbs := h.container.Databases()
	names := make([]string, 0, len(dbs))
	for name := range dbs {
		names = append(names, name)
	}
	sort.Strings(names)

	response := DatabaseStatsResponse{
		Databases:   make([]DBInfo, 0, len(names)),
		LastChecked: time.Now().Format(time.RFC3339),
	}

	for _, name := range names {
		db := dbs[name]
		info := DBInfo{Name: name, Path: db.Path()}

		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			info.Error = err.Error()
		} else {
			info.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			info.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
			info.PageCount = stats.PageCount
			info.PageSize = stats.PageSize
			response.TotalSizeMB += info.SizeMB + info.WALSizeMB
		}

		response.Databases = append(response.Databases, info)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsList returns the names of the jobs that can be triggered
func (h *SystemHandlers) HandleJobsList(w http.ResponseWriter, r *http.Request) {
	h.jobsMu.RLock()
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	h.jobsMu.RUnlock()
	sort.Strings(names)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": names})
}

// HandleTriggerJob runs a registered job immediately and reports the outcome
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.jobsMu.RLock()
	job, ok := h.jobs[name]
	h.jobsMu.RUnlock()

	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Job not registered: " + name})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job triggered")
	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": name + " completed"})
}

// HandleListBackups lists the off-site backups, newest first
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.container.R2BackupService == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"enabled": false,
			"message": "R2 backups are not configured",
		})
		return
	}

	backups, err := h.container.R2BackupService.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": true,
		"backups": backups,
	})
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short 100ms sampling interval to keep the status call responsive
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
