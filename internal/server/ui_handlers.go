package server

import (
	"log/slog"
	"net/http"

	"github.com/cwbudde/ransacfit/internal/ui"
)

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	jobs := s.jobManager.ListJobs()
	items := make([]ui.JobListItem, len(jobs))
	for i, job := range jobs {
		items[i] = ui.JobListItem{
			ID:         job.ID,
			State:      string(job.State),
			Model:      job.Config.Model,
			DataPath:   job.Config.DataPath,
			Trials:     job.Config.Trials,
			TrialsDone: job.TrialsDone,
			Inliers:    job.Inliers,
			Points:     job.Points,
			StartTime:  job.StartTime,
			EndTime:    job.EndTime,
			Error:      job.Error,
		}
	}

	if err := ui.JobList(items).Render(r.Context(), w); err != nil {
		slog.Error("Failed to render job list", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
