package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/shopsync/internal/auth"
	"github.com/dukerupert/shopsync/internal/items"
	"github.com/dukerupert/shopsync/internal/model"
	"github.com/dukerupert/shopsync/internal/protocol"
)

// Publisher fans item events out to a group's live sessions.
type Publisher interface {
	Publish(groupID string, ev protocol.ItemEvent)
}

type ItemHandler struct {
	items  *items.Service
	hub    Publisher
	logger *slog.Logger
}

func NewItemHandler(svc *items.Service, hub Publisher, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: svc, hub: hub, logger: logger}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.items.ListItems(r.Context(), auth.UserID(r.Context()), r.PathValue("groupId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

// Mutating handlers run the write and the publish on a context detached from
// the request, so a client that disconnects mid-request cannot cancel a
// mutation that its peers still need to hear about.

func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	var in items.AddItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	groupID := r.PathValue("groupId")
	ctx := context.WithoutCancel(r.Context())
	item, err := h.items.AddItem(ctx, auth.UserID(ctx), groupID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(groupID, protocol.ItemAdded{Item: *item})
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	groupID := r.PathValue("groupId")
	ctx := context.WithoutCancel(r.Context())
	item, err := h.items.UpdateItem(ctx, auth.UserID(ctx), groupID, r.PathValue("itemId"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if patch.OnlyChecked() {
		h.hub.Publish(groupID, protocol.ItemChecked{ItemID: item.ID, Checked: item.Checked})
	} else {
		h.hub.Publish(groupID, protocol.ItemEdited{Item: *item})
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupId")
	itemID := r.PathValue("itemId")
	ctx := context.WithoutCancel(r.Context())
	if err := h.items.DeleteItem(ctx, auth.UserID(ctx), groupID, itemID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Publish(groupID, protocol.ItemDeleted{ItemID: itemID})
	writeJSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

func (h *ItemHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.items.GroupSummary(r.Context(), auth.UserID(r.Context()), r.PathValue("groupId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
