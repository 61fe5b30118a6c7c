package payment

import (
	"context"
	"testing"

	"github.com/angelmondragon/pdv-terminal/internal/cart"
	"github.com/angelmondragon/pdv-terminal/pkg/enums"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validIntent() Intent {
	return Intent{
		Method:         enums.PaymentMethodCash,
		WarehouseID:    "dep1",
		AmountTendered: decimal.NewFromInt(20),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Intent)
		field  string
	}{
		{name: "valid"},
		{name: "missing method", mutate: func(i *Intent) { i.Method = "" }, field: "Method"},
		{name: "unknown method", mutate: func(i *Intent) { i.Method = "CHEQUE" }, field: "Method"},
		{name: "missing warehouse", mutate: func(i *Intent) { i.WarehouseID = "" }, field: "WarehouseID"},
		{name: "negative tendered", mutate: func(i *Intent) { i.AmountTendered = decimal.NewFromInt(-1) }, field: "AmountTendered"},
		{name: "short cpf", mutate: func(i *Intent) { i.CustomerTaxID = "123" }, field: "CustomerTaxID"},
		{name: "cpf ok", mutate: func(i *Intent) { i.CustomerTaxID = "12345678901" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := validIntent()
			if tt.mutate != nil {
				tt.mutate(&intent)
			}
			err := Validate(intent)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
			details, ok := pkgerrors.As(err).Details().(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestNormalizeStripsCPFPunctuation(t *testing.T) {
	intent := validIntent()
	intent.CustomerTaxID = "123.456.789-01"
	intent.WarehouseID = " dep1 "
	got := intent.Normalize()
	assert.Equal(t, "12345678901", got.CustomerTaxID)
	assert.Equal(t, "dep1", got.WarehouseID)
	require.NoError(t, Validate(got))
}

func TestChange(t *testing.T) {
	intent := validIntent()
	assert.True(t, intent.Change(decimal.RequireFromString("12.5")).Equal(decimal.RequireFromString("7.5")))
	assert.True(t, intent.Change(decimal.NewFromInt(25)).IsZero())

	intent.Method = enums.PaymentMethodPix
	assert.True(t, intent.Change(decimal.RequireFromString("12.5")).IsZero())
}

func TestPrompters(t *testing.T) {
	ctx := context.Background()
	req := Request{Ref: cart.Table("7"), NetTotal: decimal.NewFromInt(10)}

	got, ok, err := Provided(validIntent()).Prompt(ctx, req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dep1", got.WarehouseID)

	_, ok, err = Cancelled.Prompt(ctx, req)
	require.NoError(t, err)
	assert.False(t, ok)
}
