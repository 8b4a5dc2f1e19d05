// Package policy решает, может ли участник выполнить действие над ресурсом.
// Все проверки ролей и владения собраны в одной таблице правил.
package policy

import (
	"errors"
	"fmt"

	"vendorbid/models"
)

// ErrForbidden оборачивается всеми отказами Authorize
var ErrForbidden = errors.New("forbidden")

type Action string

const (
	CreateRequirement       Action = "requirement.create"
	UpdateRequirement       Action = "requirement.update"
	AwardBid                Action = "requirement.award"
	ViewRequirementBids     Action = "requirement.bids"
	ListOwnRequirements     Action = "requirement.list-own"
	SubmitBid               Action = "bid.submit"
	UpdateBid               Action = "bid.update"
	WithdrawBid             Action = "bid.withdraw"
	ListOwnBids             Action = "bid.list-own"
	ReviewBid               Action = "bid.review"
	ReviewSupplier          Action = "supplier.review"
	ViewVendorProfile       Action = "vendor.profile"
	ViewSupplierProfile     Action = "supplier.profile"
	ViewVerification        Action = "supplier.verification"
	RecordAnalytics         Action = "analytics.record"
	ViewAnalytics           Action = "analytics.view"
	GenerateRecommendations Action = "analytics.recommendations"
	VerifySupplier          Action = "admin.verify-supplier"
	ListUsers               Action = "admin.list-users"
)

// Actor это аутентифицированный пользователь, от имени которого идёт запрос
type Actor struct {
	ID       int64
	Role     models.Role
	Verified bool
}

// Resource описывает цель действия. OwnerID равен нулю, если владение не проверяется.
type Resource struct {
	OwnerID int64
}

type rule struct {
	roles    []models.Role
	owner    bool
	verified bool

	roleMsg     string
	ownerMsg    string
	verifiedMsg string
}

var rules = map[Action]rule{
	CreateRequirement: {
		roles:   []models.Role{models.RoleVendor},
		roleMsg: "Only vendors can create requirements",
	},
	UpdateRequirement: {
		roles:    []models.Role{models.RoleVendor},
		owner:    true,
		roleMsg:  "Only vendors can update requirements",
		ownerMsg: "You can only update your own requirements",
	},
	AwardBid: {
		roles:    []models.Role{models.RoleVendor},
		owner:    true,
		roleMsg:  "Only vendors can award bids",
		ownerMsg: "You can only award bids for your own requirements",
	},
	ViewRequirementBids: {
		roles:    []models.Role{models.RoleVendor},
		owner:    true,
		roleMsg:  "Only vendors can view bids for their requirements",
		ownerMsg: "You can only view bids for your own requirements",
	},
	ListOwnRequirements: {
		roles:   []models.Role{models.RoleVendor},
		roleMsg: "Access denied",
	},
	SubmitBid: {
		roles:       []models.Role{models.RoleSupplier},
		verified:    true,
		roleMsg:     "Only suppliers can place bids",
		verifiedMsg: "You must be a verified supplier to place bids.",
	},
	UpdateBid: {
		roles:    []models.Role{models.RoleSupplier},
		owner:    true,
		roleMsg:  "Only suppliers can update bids",
		ownerMsg: "You can only update your own bids",
	},
	WithdrawBid: {
		roles:    []models.Role{models.RoleSupplier},
		owner:    true,
		roleMsg:  "Only suppliers can withdraw bids",
		ownerMsg: "You can only withdraw your own bids",
	},
	ListOwnBids: {
		roles:   []models.Role{models.RoleSupplier},
		roleMsg: "Access denied",
	},
	ReviewBid: {
		roles:    []models.Role{models.RoleVendor},
		owner:    true,
		roleMsg:  "Only the requirement creator can review bids",
		ownerMsg: "Only the requirement creator can review bids",
	},
	ReviewSupplier: {
		roles:   []models.Role{models.RoleVendor},
		roleMsg: "Only vendors can add reviews",
	},
	ViewVendorProfile: {
		roles:   []models.Role{models.RoleVendor},
		roleMsg: "Access denied",
	},
	ViewSupplierProfile: {
		roles:   []models.Role{models.RoleSupplier},
		roleMsg: "Access denied",
	},
	ViewVerification: {
		roles:   []models.Role{models.RoleSupplier},
		roleMsg: "Access denied",
	},
	RecordAnalytics: {
		roles:   []models.Role{models.RoleVendor},
		roleMsg: "Only vendors can add analytics data",
	},
	ViewAnalytics: {
		roles:   []models.Role{models.RoleVendor},
		roleMsg: "Access denied",
	},
	GenerateRecommendations: {
		roles:   []models.Role{models.RoleVendor},
		roleMsg: "Access denied",
	},
	VerifySupplier: {
		roles:   []models.Role{models.RoleAdmin},
		roleMsg: "Only admins can verify suppliers",
	},
	ListUsers: {
		roles:   []models.Role{models.RoleAdmin},
		roleMsg: "Only admins can view users",
	},
}

// Denied сообщает причину отказа; errors.Is(err, ErrForbidden) для него истинно
type Denied struct {
	Action Action
	Reason string
}

func (d *Denied) Error() string { return d.Reason }

func (d *Denied) Is(target error) bool { return target == ErrForbidden }

// Authorize проверяет роль, затем подтверждённость, затем владение ресурсом.
// Неизвестное действие всегда запрещено.
func Authorize(actor Actor, action Action, res Resource) error {
	if err := CheckRole(actor, action); err != nil {
		return err
	}
	if r := rules[action]; r.owner && res.OwnerID != actor.ID {
		return &Denied{Action: action, Reason: r.ownerMsg}
	}
	return nil
}

// CheckRole проверяет только роль и подтверждённость. Нужна до загрузки ресурса,
// чтобы чужая роль получала 403 раньше, чем 404.
func CheckRole(actor Actor, action Action) error {
	r, ok := rules[action]
	if !ok {
		return &Denied{Action: action, Reason: fmt.Sprintf("Unknown action %q", action)}
	}
	if !hasRole(r.roles, actor.Role) {
		return &Denied{Action: action, Reason: r.roleMsg}
	}
	if r.verified && !actor.Verified {
		return &Denied{Action: action, Reason: r.verifiedMsg}
	}
	return nil
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
