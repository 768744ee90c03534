package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Target string `json:"target"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Target: g.proxy.TargetName(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version       string   `json:"version"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	Target        string   `json:"target"`
	HighRisk      []string `json:"high_risk_actions"`
	PendingTasks  int      `json:"pending_tasks"`
}

func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		highRisk, _ := g.proxy.Classifier().HighRiskActions(g.proxy.TargetName())
		if highRisk == nil {
			highRisk = []string{}
		}
		resp := StatusResponse{
			Version:       g.version,
			UptimeSeconds: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Target:        g.proxy.TargetName(),
			HighRisk:      highRisk,
			PendingTasks:  g.registry.Len(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// TaskView is one entry in the GET /tasks response. Arguments pass through
// the audit redactor so the admin surface never leaks secrets either.
type TaskView struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	AgeSeconds float64         `json:"age_seconds"`
}

func (g *Gateway) handleListTasks() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		now := time.Now()
		tasks := g.registry.List()
		views := make([]TaskView, 0, len(tasks))
		for _, t := range tasks {
			views = append(views, TaskView{
				ID:         t.ID,
				Action:     t.Action,
				Arguments:  g.redactor.RedactJSON(t.Args),
				Status:     string(t.Status),
				CreatedAt:  t.CreatedAt,
				AgeSeconds: now.Sub(t.CreatedAt).Truncate(time.Second).Seconds(),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(views)
	}
}
