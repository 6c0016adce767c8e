package tokengate

import "time"

// Identity is an authenticated subject as known to the host identity store.
type Identity struct {
	ID         int64
	ExternalID string
	Username   string
	Email      string
	Active     bool
	Roles      []string
}

// HasRole reports whether the identity holds the named role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// LoginOutcome is the host's verdict on a username/password pair.
type LoginOutcome int

const (
	LoginSuccessful LoginOutcome = iota
	LoginCustomerNotExist
	LoginDeleted
	LoginNotActive
	LoginNotRegistered
	LoginLockedOut
	LoginWrongPassword
)

// Message keys resolved through the Localizer.
const (
	MessageWrongCredentials   = "Account.Login.WrongCredentials"
	MessageCustomerNotExist   = "Account.Login.WrongCredentials.CustomerNotExist"
	MessageDeleted            = "Account.Login.WrongCredentials.Deleted"
	MessageNotActive          = "Account.Login.WrongCredentials.NotActive"
	MessageNotRegistered      = "Account.Login.WrongCredentials.NotRegistered"
	MessageLockedOut          = "Account.Login.WrongCredentials.LockedOut"
	MessageAccountNotApproved = "Account.Login.WrongCredentials.AccountNotApproved"
	MessageCustomerNotFound   = "Api.Token.CustomerNotFound"
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSuccessful:
		return "successful"
	case LoginCustomerNotExist:
		return "customer_not_exist"
	case LoginDeleted:
		return "deleted"
	case LoginNotActive:
		return "not_active"
	case LoginNotRegistered:
		return "not_registered"
	case LoginLockedOut:
		return "locked_out"
	case LoginWrongPassword:
		return "wrong_password"
	default:
		return "unknown"
	}
}

// MessageKey returns the localization key describing a failed outcome.
// Unknown outcomes fall back to the generic wrong-credentials message.
func (o LoginOutcome) MessageKey() string {
	switch o {
	case LoginCustomerNotExist:
		return MessageCustomerNotExist
	case LoginDeleted:
		return MessageDeleted
	case LoginNotActive:
		return MessageNotActive
	case LoginNotRegistered:
		return MessageNotRegistered
	case LoginLockedOut:
		return MessageLockedOut
	default:
		return MessageWrongCredentials
	}
}

// Claims is the decoded claim set carried by a token.
type Claims struct {
	CustomerID int64
	ExternalID string
	Username   string
	Email      string
	Roles      []string
	IssuedAt   time.Time
	NotBefore  time.Time
	ExpiresAt  time.Time
}

// Token is a signed credential plus its plaintext validity window.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    *Claims
}

// Principal is the request-scoped subject established from a verified token.
type Principal struct {
	CustomerID int64
	ExternalID string
	Name       string
	Roles      []string // role snapshot taken when the token was issued
	Scheme     string

	// Identity is the subject re-resolved from the identity store for this
	// request; nil when the store no longer knows it.
	Identity *Identity
}

// HasRole checks the re-resolved identity when present, else the token snapshot.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	if p.Identity != nil {
		return p.Identity.HasRole(role)
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthzRequest is the input to a policy decision.
type AuthzRequest struct {
	Principal *Principal
	Scheme    string
}

// Decision is the outcome of a policy evaluation. Reason names the first
// failing check and is meant for logs and metrics only.
type Decision struct {
	Allowed bool
	Reason  string
}
