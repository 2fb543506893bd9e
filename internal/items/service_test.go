package items

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/shopsync/internal/access"
	"github.com/dukerupert/shopsync/internal/database"
	domainerrors "github.com/dukerupert/shopsync/internal/errors"
	"github.com/dukerupert/shopsync/internal/model"
	"github.com/dukerupert/shopsync/internal/store"
	"github.com/dukerupert/shopsync/internal/validation"
)

type fixture struct {
	svc      *Service
	channels *store.ChannelStore
	x, y, z  *model.User
	group    *model.Group
}

// setupService builds a channel with members X and Y, an outsider Z, and
// one empty group.
func setupService(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := store.NewUserStore(db)
	channels := store.NewChannelStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		svc:      NewService(access.NewGuard(channels, channels), store.NewItemStore(db), validation.New(), logger),
		channels: channels,
	}
	f.x, err = users.Create(ctx, "x@example.com", "Xavier", "")
	require.NoError(t, err)
	f.y, err = users.Create(ctx, "y@example.com", "Yara", "")
	require.NoError(t, err)
	f.z, err = users.Create(ctx, "z@example.com", "Zed", "")
	require.NoError(t, err)

	home, err := channels.CreateChannel(ctx, "Home")
	require.NoError(t, err)
	require.NoError(t, channels.AddMember(ctx, home.ID, f.x.ID, "owner"))
	require.NoError(t, channels.AddMember(ctx, home.ID, f.y.ID, "member"))
	f.group, err = channels.CreateGroup(ctx, home.ID, "Weekly")
	require.NoError(t, err)
	return f
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestListAndAdd(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	items, err := f.svc.ListItems(ctx, f.x.ID, f.group.ID)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	milk, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "Milk", Quantity: intPtr(2)})
	require.NoError(t, err)
	assert.False(t, milk.Checked)
	require.NotNil(t, milk.Quantity)
	assert.Equal(t, 2, *milk.Quantity)
	assert.Equal(t, "Xavier", milk.AddedByName)
	assert.Equal(t, f.x.ID, milk.AddedByID)

	items, err = f.svc.ListItems(ctx, f.y.ID, f.group.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, milk.ID, items[0].ID)
}

func TestAddTrimsAndValidates(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	item, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "  Bread  "})
	require.NoError(t, err)
	assert.Equal(t, "Bread", item.Name)
	assert.Nil(t, item.Quantity)

	tests := []struct {
		name string
		in   AddItemInput
	}{
		{"blank name", AddItemInput{Name: "   "}},
		{"long name", AddItemInput{Name: strings.Repeat("x", 201)}},
		{"zero quantity", AddItemInput{Name: "Eggs", Quantity: intPtr(0)}},
		{"negative quantity", AddItemInput{Name: "Eggs", Quantity: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, tt.in)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "got %v", err)
		})
	}
}

func TestAddIsNotIdempotent(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	a, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "Milk"})
	require.NoError(t, err)
	b, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "Milk"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNonMemberIsForbidden(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	milk, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "Milk"})
	require.NoError(t, err)

	_, err = f.svc.ListItems(ctx, f.z.ID, f.group.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	_, err = f.svc.AddItem(ctx, f.z.ID, f.group.ID, AddItemInput{Name: "Eggs"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	_, err = f.svc.UpdateItem(ctx, f.z.ID, f.group.ID, milk.ID, model.ItemPatch{Checked: boolPtr(true)})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	err = f.svc.DeleteItem(ctx, f.z.ID, f.group.ID, milk.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	_, err = f.svc.ListItems(ctx, f.x.ID, "no-such-group")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	// Validation never runs ahead of access: an outsider sending junk is
	// still told Forbidden.
	_, err = f.svc.AddItem(ctx, f.z.ID, f.group.ID, AddItemInput{Name: ""})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))
}

func TestDeleteRequiresCreator(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	milk, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "Milk", Quantity: intPtr(2)})
	require.NoError(t, err)

	err = f.svc.DeleteItem(ctx, f.y.ID, f.group.ID, milk.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	items, err := f.svc.ListItems(ctx, f.x.ID, f.group.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, milk.ID, items[0].ID)

	require.NoError(t, f.svc.DeleteItem(ctx, f.x.ID, f.group.ID, milk.ID))

	err = f.svc.DeleteItem(ctx, f.x.ID, f.group.ID, milk.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestUpdateQuantityNullVersusOmitted(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	eggs, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "Eggs", Quantity: intPtr(12)})
	require.NoError(t, err)

	// Omitted quantity leaves the value alone.
	renamed, err := f.svc.UpdateItem(ctx, f.y.ID, f.group.ID, eggs.ID, model.ItemPatch{Name: strPtr("Free-range eggs")})
	require.NoError(t, err)
	assert.Equal(t, "Free-range eggs", renamed.Name)
	require.NotNil(t, renamed.Quantity)
	assert.Equal(t, 12, *renamed.Quantity)

	// Explicit null clears it.
	cleared, err := f.svc.UpdateItem(ctx, f.y.ID, f.group.ID, eggs.ID, model.ItemPatch{Quantity: model.Clear()})
	require.NoError(t, err)
	assert.Nil(t, cleared.Quantity)
	assert.Equal(t, "Free-range eggs", cleared.Name)
	assert.False(t, cleared.UpdatedAt.Before(renamed.UpdatedAt))
}

func TestUpdateCheckedIsIdempotent(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	milk, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "Milk"})
	require.NoError(t, err)

	for range 2 {
		got, err := f.svc.UpdateItem(ctx, f.y.ID, f.group.ID, milk.ID, model.ItemPatch{Checked: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, got.Checked)
		assert.True(t, milk.CreatedAt.Equal(got.CreatedAt), "created_at must not change")
	}
}

func TestUpdateValidation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	milk, err := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "Milk"})
	require.NoError(t, err)

	_, err = f.svc.UpdateItem(ctx, f.x.ID, f.group.ID, milk.ID, model.ItemPatch{Name: strPtr("  ")})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	_, err = f.svc.UpdateItem(ctx, f.x.ID, f.group.ID, milk.ID, model.ItemPatch{Quantity: model.Some(0)})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestUpdateMissingItem(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.UpdateItem(context.Background(), f.x.ID, f.group.ID, "gone", model.ItemPatch{Checked: boolPtr(true)})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestGroupSummary(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	a, _ := f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "A"})
	f.svc.AddItem(ctx, f.x.ID, f.group.ID, AddItemInput{Name: "B"})
	_, err := f.svc.UpdateItem(ctx, f.x.ID, f.group.ID, a.ID, model.ItemPatch{Checked: boolPtr(true)})
	require.NoError(t, err)

	sum, err := f.svc.GroupSummary(ctx, f.y.ID, f.group.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GroupSummary{GroupID: f.group.ID, ItemCount: 2, CheckedCount: 1}, *sum)

	_, err = f.svc.GroupSummary(ctx, f.z.ID, f.group.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))
}
