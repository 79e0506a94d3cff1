package handler

import (
	"encoding/json"
	"net/http"
)

// ContainmentView Описываем, что нам нужно от реестра containment
type ContainmentView interface {
	Contained() []string
}

type ContainmentHandler struct {
	registry ContainmentView
}

func NewContainmentHandler(registry ContainmentView) *ContainmentHandler {
	return &ContainmentHandler{registry: registry}
}

// List возвращает узлы, по которым уже отработал containment
// GET /v1/containment
func (h *ContainmentHandler) List(w http.ResponseWriter, r *http.Request) {
	nodes := h.registry.Contained()
	if nodes == nil {
		nodes = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"contained": nodes,
		"count":     len(nodes),
	})
}
