package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gameworld/internal/game"
	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
	"gameworld/internal/overview"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
	maxOverviewSize   = 2048
)

// entityJSON is the API view of one live entity.
type entityJSON struct {
	Index      int           `json:"index"`
	Handle     entity.Handle `json:"handle"`
	Classname  string        `json:"classname"`
	Targetname string        `json:"targetname,omitempty"`
	Target     string        `json:"target,omitempty"`
	Type       entity.Type   `json:"type"`
	Origin     mathx.Vec3    `json:"origin"`
	Angles     mathx.Vec3    `json:"angles"`
	Linked     bool          `json:"linked"`
	NoClient   bool          `json:"noClient"`
	KeyValues  []keyValue    `json:"keyValues,omitempty"`
}

type keyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func toEntityJSON(e entity.Entity, withKeyValues bool) entityJSON {
	b := e.BaseEntity()
	out := entityJSON{
		Index:      b.Index(),
		Handle:     b.Handle(),
		Classname:  b.Classname,
		Targetname: b.Targetname,
		Target:     b.Target,
		Type:       b.Shared.Type,
		Origin:     b.Origin,
		Angles:     b.Angles,
		Linked:     b.Linked,
		NoClient:   b.SvFlags&entity.SvfNoClient != 0,
	}
	if kv := b.KeyValues(); withKeyValues && kv != nil {
		for _, k := range kv.Keys() {
			v, _ := kv.Value(k)
			out.KeyValues = append(out.KeyValues, keyValue{Key: k, Value: v})
		}
	}
	return out
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, map[string]interface{}{
		"sequence":     snap.Sequence,
		"frameNum":     snap.FrameNum,
		"levelTime":    snap.LevelTime,
		"mapName":      snap.MapName,
		"message":      snap.Message,
		"music":        snap.Music,
		"intermission": snap.Intermission,
		"halted":       snap.Halted,
		"entityCount":  snap.EntityCount,
		"clientCount":  len(snap.Clients),
		"commands":     h.engine.QueueStats(),
		"eventLog":     h.engine.EventLog().Stats(),
	})
}

// handleListEntities lists live entities, optionally filtered by classname
// and targetname. With both filters an entity must match both.
func (h *routerHandlers) handleListEntities(w http.ResponseWriter, r *http.Request) {
	classname := r.URL.Query().Get("classname")
	name := r.URL.Query().Get("name")

	result := make([]entityJSON, 0)
	h.engine.View(func(world *game.World) {
		table := world.Entities()
		switch {
		case name != "":
			for e := table.FindByName(name, nil); e != nil; e = table.FindByName(name, e) {
				if classname == "" || e.BaseEntity().Classname == classname {
					result = append(result, toEntityJSON(e, false))
				}
			}
		case classname != "":
			for _, e := range table.FindAllByClassname(classname) {
				result = append(result, toEntityJSON(e, false))
			}
		default:
			table.Each(func(e entity.Entity) bool {
				result = append(result, toEntityJSON(e, false))
				return true
			})
		}
	})

	writeJSON(w, result)
}

func (h *routerHandlers) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, "Invalid entity index", http.StatusBadRequest)
		return
	}

	var (
		found entityJSON
		ok    bool
	)
	h.engine.View(func(world *game.World) {
		if e, live := world.Entities().Get(index); live {
			found, ok = toEntityJSON(e, true), true
		}
	})

	if !ok {
		writeError(w, "Entity not found", http.StatusNotFound)
		return
	}
	writeJSON(w, found)
}

func (h *routerHandlers) handleListClients(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	clients := snap.Clients
	if clients == nil {
		clients = []game.ClientSnapshot{}
	}
	writeJSON(w, clients)
}

func (h *routerHandlers) handleGetClient(w http.ResponseWriter, r *http.Request) {
	index, ok := clientIndex(w, r)
	if !ok {
		return
	}
	for _, c := range h.engine.Snapshot().Clients {
		if c.Index == index {
			writeJSON(w, c)
			return
		}
	}
	writeError(w, "Client not connected", http.StatusNotFound)
}

func (h *routerHandlers) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Bot  bool   `json:"bot"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		writeError(w, "Name is required", http.StatusBadRequest)
		return
	}

	slot, err := h.engine.Connect(req.Name, req.Bot)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	writeJSONStatus(w, http.StatusCreated, map[string]interface{}{"index": slot, "name": req.Name, "bot": req.Bot})
}

func (h *routerHandlers) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	index, ok := clientIndex(w, r)
	if !ok {
		return
	}
	if err := h.engine.Disconnect(index); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	index, ok := clientIndex(w, r)
	if !ok {
		return
	}

	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.engine.SubmitCommand(index, req.Command); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]bool{"queued": true})
}

func (h *routerHandlers) handleUsercmd(w http.ResponseWriter, r *http.Request) {
	index, ok := clientIndex(w, r)
	if !ok {
		return
	}

	var cmd game.Usercmd
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.engine.SetUsercmd(index, cmd); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	names := make(map[int]string, len(snap.Clients))
	for _, c := range snap.Clients {
		names[c.Index] = c.Name
	}

	result := make([]map[string]interface{}, 0, len(snap.Scores))
	for _, s := range snap.Scores {
		result = append(result, map[string]interface{}{
			"rank":   s.Rank,
			"client": s.Client,
			"name":   names[s.Client],
			"score":  s.Score,
		})
	}
	writeJSON(w, result)
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventLimit)
	}
	writeJSON(w, h.engine.EventLog().Recent(limit))
}

func (h *routerHandlers) handleOverview(w http.ResponseWriter, r *http.Request) {
	opts := overview.DefaultOptions()
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxOverviewSize {
			writeError(w, "Invalid size", http.StatusBadRequest)
			return
		}
		opts.Size = n
	}
	if v := r.URL.Query().Get("extent"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeError(w, "Invalid extent", http.StatusBadRequest)
			return
		}
		opts.Extent = f
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := overview.WritePNG(w, h.engine.Snapshot(), opts); err != nil {
		log.Printf("⚠️ Overview render failed: %v", err)
	}
}

// Helper functions (package-level for reuse)

func clientIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, "Invalid client index", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrClientNotConnected):
		return http.StatusNotFound
	case errors.Is(err, game.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, game.ErrQueueFull), errors.Is(err, game.ErrServerFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, game.ErrClientConnected):
		return http.StatusConflict
	case errors.Is(err, game.ErrHalted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}
