// Package access answers whether a user may observe or mutate a group's items.
package access

import (
	"context"
	"fmt"

	"github.com/dukerupert/shopsync/internal/model"
)

// GroupLookup resolves a group by id, returning nil when it does not exist.
type GroupLookup interface {
	GetGroup(ctx context.Context, id string) (*model.Group, error)
}

// MembershipLookup reports channel membership.
type MembershipLookup interface {
	IsMember(ctx context.Context, channelID, userID string) (bool, error)
}

// Guard checks group access through channel membership. It holds no cache:
// every call reflects membership at call time.
type Guard struct {
	groups  GroupLookup
	members MembershipLookup
}

func NewGuard(groups GroupLookup, members MembershipLookup) *Guard {
	return &Guard{groups: groups, members: members}
}

// CanAccess reports whether userID is a member of the channel that owns
// groupID. An unknown group or empty ids yield false without error; only
// storage failures return an error.
func (g *Guard) CanAccess(ctx context.Context, userID, groupID string) (bool, error) {
	if userID == "" || groupID == "" {
		return false, nil
	}

	group, err := g.groups.GetGroup(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("lookup group: %w", err)
	}
	if group == nil {
		return false, nil
	}

	ok, err := g.members.IsMember(ctx, group.ChannelID, userID)
	if err != nil {
		return false, fmt.Errorf("lookup membership: %w", err)
	}
	return ok, nil
}
