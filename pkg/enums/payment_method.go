package enums

import "fmt"

// PaymentMethod is the tender type sent as tipo_pagamento when a bill is closed.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "DINHEIRO"
	PaymentMethodCreditCard  PaymentMethod = "CARTAO_CREDITO"
	PaymentMethodDebitCard   PaymentMethod = "CARTAO_DEBITO"
	PaymentMethodPix         PaymentMethod = "PIX"
	PaymentMethodMealVoucher PaymentMethod = "VALE_REFEICAO"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodPix,
	PaymentMethodMealVoucher,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
