// Package business models the business-profile configuration that drives
// obligation scheduling and setup-state resolution.
package business

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// EntityKind enumerates legal forms.
type EntityKind string

const (
	EntitySoleTrader EntityKind = "sole_trader"
	EntityLLC        EntityKind = "llc"
	EntityJointStock EntityKind = "joint_stock"
)

// TaxRegime enumerates income-tax regimes. The zero value means unset.
type TaxRegime string

const (
	TaxRegimeFlatRate    TaxRegime = "flat_rate"
	TaxRegimeProgressive TaxRegime = "progressive"
	TaxRegimeLinear      TaxRegime = "linear"
	TaxRegimeNone        TaxRegime = "none"
)

// VATStatus enumerates VAT registration states. The zero value means undefined.
type VATStatus string

const (
	VATExempt        VATStatus = "exempt"
	VATActive        VATStatus = "active"
	VATNotApplicable VATStatus = "n/a"
)

// VATCadence enumerates VAT filing frequency.
type VATCadence string

const (
	VATMonthly   VATCadence = "monthly"
	VATQuarterly VATCadence = "quarterly"
)

// ErrInvalidProfile indicates a profile that fails boundary validation.
var ErrInvalidProfile = errors.New("business: invalid profile")

// Profile is the externally owned configuration of one business. It is
// treated as immutable for the duration of a request.
type Profile struct {
	ID              uuid.UUID  `json:"id"`
	EntityKind      EntityKind `json:"entity_kind" validate:"required,oneof=sole_trader llc joint_stock"`
	TaxRegime       TaxRegime  `json:"tax_regime" validate:"omitempty,oneof=flat_rate progressive linear none"`
	VATStatus       VATStatus  `json:"vat_status" validate:"omitempty,oneof=exempt active n/a"`
	VATCadence      VATCadence `json:"vat_cadence" validate:"omitempty,oneof=monthly quarterly"`
	BusinessStart   *time.Time `json:"business_start,omitempty"`
	AccountingStart *time.Time `json:"accounting_start,omitempty"`
}

var validate = validator.New()

// Validate checks the enum fields. It is the only fallible step in front of
// the pure scheduling and resolution functions.
func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

// IsSoleTrader reports whether the business is a sole proprietorship.
func (p Profile) IsSoleTrader() bool {
	return p.EntityKind == EntitySoleTrader
}

// IsCorporate reports whether the business owes corporate income tax.
func (p Profile) IsCorporate() bool {
	return p.EntityKind == EntityLLC || p.EntityKind == EntityJointStock
}

// HasTaxRegime reports whether a personal income-tax regime is configured.
// Corporate entities ignore the regime field.
func (p Profile) HasTaxRegime() bool {
	switch p.TaxRegime {
	case TaxRegimeFlatRate, TaxRegimeProgressive, TaxRegimeLinear:
		return true
	default:
		return false
	}
}

// VATDefined reports whether a VAT decision has been recorded.
func (p Profile) VATDefined() bool {
	return p.VATStatus == VATExempt || p.VATStatus == VATActive
}

// OwesVAT reports whether periodic VAT returns are filed. An undecided
// status files until the owner records an exemption.
func (p Profile) OwesVAT() bool {
	return p.VATStatus != VATExempt && p.VATStatus != VATNotApplicable
}

// EffectiveVATCadence defaults an unset cadence to monthly.
func (p Profile) EffectiveVATCadence() VATCadence {
	if p.VATCadence == VATQuarterly {
		return VATQuarterly
	}
	return VATMonthly
}

// MinimallyConfigured reports whether enough of the profile exists to leave
// the empty onboarding stage. Sole traders need a tax regime and a start date.
func (p Profile) MinimallyConfigured() bool {
	if !p.IsSoleTrader() {
		return p.EntityKind != ""
	}
	return p.TaxRegime != "" && p.BusinessStart != nil
}
