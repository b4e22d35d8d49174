package relay

import (
	"time"

	"thepipe/internal/pipe"
)

// ContentType marks request and response bodies carrying one wire frame.
const ContentType = "application/vnd.thepipe.frame"

// PushResponse answers PUT /pipes/{name}.
type PushResponse struct {
	PushID     string `json:"push_id"`
	Suppressed bool   `json:"suppressed"`
}

// PushStatus answers GET /pipes/{name}/pushes/{id}.
type PushStatus struct {
	PushID string         `json:"push_id"`
	State  pipe.PushState `json:"state"`
}

// SlotInfo describes one queued tree.
type SlotInfo struct {
	Name     string    `json:"name"`
	PushID   string    `json:"push_id"`
	Bytes    int       `json:"bytes"`
	Nodes    int       `json:"nodes"`
	PushedAt time.Time `json:"pushed_at"`
}

// ListResponse answers GET /pipes.
type ListResponse struct {
	Pipes []SlotInfo `json:"pipes"`
}

type errorResponse struct {
	Error string `json:"error"`
}
