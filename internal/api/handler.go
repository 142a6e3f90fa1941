package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"CampaignPulse/internal/campaign"
	"CampaignPulse/internal/models"
	"CampaignPulse/internal/queue"
)

// Handler is the producer-facing HTTP surface: enqueue, queue stats, the
// inbound receipt seam and campaign launch.
type Handler struct {
	Queue        *queue.Store
	Orchestrator *campaign.Orchestrator
	Log          *zap.Logger
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/queues/{type}", h.EnqueueItem)
	r.Get("/queues/stats", h.QueueStats)
	r.Post("/receipts", h.IngestReceipt)
	r.Post("/campaigns/launch", h.LaunchCampaign)

	return r
}

type enqueueRequest struct {
	Payload  json.RawMessage `json:"payload"`
	Priority int             `json:"priority"`
}

func (h *Handler) EnqueueItem(w http.ResponseWriter, r *http.Request) {
	t := models.QueueType(chi.URLParam(r, "type"))

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.Queue.Enqueue(r.Context(), t, req.Payload, req.Priority)
	if err != nil {
		if errors.Is(err, queue.ErrUnknownQueue) || errors.Is(err, queue.ErrEmptyPayload) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Log.Error("enqueue failed", zap.String("queue", string(t)), zap.Error(err))
		http.Error(w, "enqueue failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	t := models.QueueType(r.URL.Query().Get("type"))
	if t != "" && !t.Valid() {
		http.Error(w, "unknown queue type", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.Queue.Stats(t))
}

// IngestReceipt is the inbound seam for vendor callbacks. It accepts a
// confirmation and enqueues a receipt_process item; reconciliation
// happens asynchronously in the receipt worker.
func (h *Handler) IngestReceipt(w http.ResponseWriter, r *http.Request) {
	var p models.ReceiptPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.LogID == "" || p.Status == "" {
		http.Error(w, "log_id and status are required", http.StatusBadRequest)
		return
	}

	payload, err := json.Marshal(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.Queue.Enqueue(r.Context(), models.QueueReceiptProcess, payload, 0)
	if err != nil {
		h.Log.Error("receipt enqueue failed", zap.String("log_id", p.LogID), zap.Error(err))
		http.Error(w, "enqueue failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

type launchRequest struct {
	CampaignID  string   `json:"campaign_id"`
	CustomerIDs []string `json:"customer_ids"`
	Message     string   `json:"message"`
}

func (h *Handler) LaunchCampaign(w http.ResponseWriter, r *http.Request) {
	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.Orchestrator.Launch(r.Context(), req.CampaignID, req.CustomerIDs, req.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"item_id": id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
