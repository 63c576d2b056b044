package blogservice

import (
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type DenyReason string

const (
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonNoOwner         DenyReason = "no_owner"
	ReasonNotOwner        DenyReason = "not_owner"
)

// Decision is the outcome of an ownership check. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Authorize decides whether p may mutate b. Owners are compared by their
// canonical string form; a blog without an owner cannot be mutated by anyone.
func Authorize(p *userservice.Principal, b *Blog) Decision {
	switch {
	case p == nil:
		return Decision{Reason: ReasonUnauthenticated}
	case b.OwnerID == nil:
		return Decision{Reason: ReasonNoOwner}
	case b.OwnerID.String() != p.UserID.String():
		return Decision{Reason: ReasonNotOwner}
	default:
		return Decision{Allowed: true}
	}
}

// Err converts a denial into the error the HTTP layer renders.
func (d Decision) Err(b *Blog) error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonUnauthenticated:
		return common.AuthError{Reason: common.AuthMissing}
	default:
		return common.AuthorizationError{ResourceID: b.ID.String(), Reason: string(d.Reason)}
	}
}
