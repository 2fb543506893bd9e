// Package items executes item reads and mutations on behalf of a verified
// user. Every operation passes the access guard before touching storage.
package items

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "github.com/dukerupert/shopsync/internal/errors"
	"github.com/dukerupert/shopsync/internal/model"
	"github.com/dukerupert/shopsync/internal/store"
	"github.com/dukerupert/shopsync/internal/validation"
)

// AccessChecker reports whether a user may read and write a group's items.
type AccessChecker interface {
	CanAccess(ctx context.Context, userID, groupID string) (bool, error)
}

type AddItemInput struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Quantity *int   `json:"quantity" validate:"omitnil,gt=0"`
}

type patchRules struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=200"`
	Quantity *int    `json:"quantity" validate:"omitnil,gt=0"`
}

type Service struct {
	guard     AccessChecker
	items     *store.ItemStore
	validator *validation.Validator
	logger    *slog.Logger
}

func NewService(guard AccessChecker, items *store.ItemStore, v *validation.Validator, logger *slog.Logger) *Service {
	return &Service{guard: guard, items: items, validator: v, logger: logger}
}

func (s *Service) authorize(ctx context.Context, userID, groupID string) error {
	ok, err := s.guard.CanAccess(ctx, userID, groupID)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "check group access")
	}
	if !ok {
		return domainerrors.Forbidden("not a channel member")
	}
	return nil
}

// ListItems returns every item in the group in creation order.
func (s *Service) ListItems(ctx context.Context, userID, groupID string) ([]model.ItemView, error) {
	if err := s.authorize(ctx, userID, groupID); err != nil {
		return nil, err
	}
	items, err := s.items.ListViews(ctx, groupID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list items")
	}
	if items == nil {
		items = []model.ItemView{}
	}
	return items, nil
}

// AddItem creates a new unchecked item owned by userID. It is not idempotent:
// each call creates a distinct item.
func (s *Service) AddItem(ctx context.Context, userID, groupID string, in AddItemInput) (*model.ItemView, error) {
	if err := s.authorize(ctx, userID, groupID); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	item, err := s.items.Create(ctx, groupID, in.Name, in.Quantity, userID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "create item")
	}
	view, err := s.items.GetView(ctx, groupID, item.ID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load item")
	}
	if view == nil {
		// Deleted between insert and read.
		return nil, domainerrors.NotFound("item not found")
	}

	s.logger.Debug("item added", "group_id", groupID, "item_id", item.ID, "user_id", userID)
	return view, nil
}

// UpdateItem applies patch and returns the post-update item. A missing item,
// including one deleted concurrently, is NotFound.
func (s *Service) UpdateItem(ctx context.Context, userID, groupID, itemID string, patch model.ItemPatch) (*model.ItemView, error) {
	if err := s.authorize(ctx, userID, groupID); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	if err := s.validator.Validate(patchRules{Name: patch.Name, Quantity: patch.Quantity.Value}); err != nil {
		return nil, err
	}

	if _, err := s.items.Update(ctx, groupID, itemID, patch); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "update item")
	}
	view, err := s.items.GetView(ctx, groupID, itemID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load item")
	}
	if view == nil {
		return nil, domainerrors.NotFound("item not found")
	}

	s.logger.Debug("item updated", "group_id", groupID, "item_id", itemID, "user_id", userID)
	return view, nil
}

// DeleteItem removes an item. Only its creator may delete it.
func (s *Service) DeleteItem(ctx context.Context, userID, groupID, itemID string) error {
	if err := s.authorize(ctx, userID, groupID); err != nil {
		return err
	}

	item, err := s.items.Get(ctx, groupID, itemID)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "load item")
	}
	if item == nil {
		return domainerrors.NotFound("item not found")
	}
	if item.AddedByID != userID {
		return domainerrors.Forbidden("only the user who created the item can delete it")
	}

	deleted, err := s.items.Delete(ctx, groupID, itemID)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "delete item")
	}
	if !deleted {
		return domainerrors.NotFound("item not found")
	}

	s.logger.Debug("item deleted", "group_id", groupID, "item_id", itemID, "user_id", userID)
	return nil
}

// GroupSummary recomputes the group's item and checked counts from storage.
func (s *Service) GroupSummary(ctx context.Context, userID, groupID string) (*model.GroupSummary, error) {
	if err := s.authorize(ctx, userID, groupID); err != nil {
		return nil, err
	}
	total, checked, err := s.items.Counts(ctx, groupID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "count items")
	}
	return &model.GroupSummary{GroupID: groupID, ItemCount: total, CheckedCount: checked}, nil
}
