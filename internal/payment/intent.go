// Package payment holds the payment intent collected by the payment modal and
// consumed once by a bill closure.
package payment

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Intent is what the operator chose in the payment modal.
type Intent struct {
	Method             enums.PaymentMethod `json:"method" validate:"required,payment_method"`
	WarehouseID        string              `json:"warehouse_id" validate:"required"`
	AmountTendered     decimal.Decimal     `json:"amount_tendered" validate:"gte=0"`
	AttendantID        string              `json:"attendant_id,omitempty"`
	CustomerTaxID      string              `json:"customer_tax_id,omitempty" validate:"omitempty,len=11,numeric"`
	IssueFiscalReceipt bool                `json:"issue_fiscal_receipt"`
}

// Request is what the modal is opened with.
type Request struct {
	Ref      cart.ContextRef `json:"context"`
	NetTotal decimal.Decimal `json:"net_total"`
}

// Prompter opens the payment modal. ok is false when the operator cancelled.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (intent Intent, ok bool, err error)
}

type provided struct {
	intent Intent
}

func (p provided) Prompt(context.Context, Request) (Intent, bool, error) {
	return p.intent, true, nil
}

// Provided answers the prompt with an intent collected up front.
func Provided(intent Intent) Prompter {
	return provided{intent: intent}
}

// Cancelled is a prompter whose operator always dismisses the modal.
var Cancelled Prompter = cancelled{}

type cancelled struct{}

func (cancelled) Prompt(context.Context, Request) (Intent, bool, error) {
	return Intent{}, false, nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
			d, ok := v.Interface().(decimal.Decimal)
			if !ok {
				return nil
			}
			f, _ := d.Float64()
			return f
		}, decimal.Decimal{})
		_ = validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
			return enums.PaymentMethod(fl.Field().String()).IsValid()
		})
	})
	return validate
}

// Normalize trims fields and strips CPF punctuation.
func (i Intent) Normalize() Intent {
	i.WarehouseID = strings.TrimSpace(i.WarehouseID)
	i.AttendantID = strings.TrimSpace(i.AttendantID)
	i.CustomerTaxID = strings.NewReplacer(".", "", "-", "", " ", "").Replace(i.CustomerTaxID)
	return i
}

// Validate checks the intent before any close call is attempted.
func Validate(intent Intent) error {
	if err := validatorInstance().Struct(intent); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment")
	}
	return nil
}

// Change is the cash to hand back. Only cash payments produce change.
func (i Intent) Change(netTotal decimal.Decimal) decimal.Decimal {
	if i.Method != enums.PaymentMethodCash || i.AmountTendered.LessThanOrEqual(netTotal) {
		return decimal.Zero
	}
	return i.AmountTendered.Sub(netTotal)
}
