package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/toyswap-api/internal/errs"
)

type sample struct {
	Name      string `json:"name" validate:"required,max=10"`
	Condition string `json:"condition" validate:"required,toycondition"`
	BuyerToy  int64  `json:"buyer_toy_id" validate:"required,gt=0"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Name: "a very long toy name", Condition: "melted"})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Equal(t,
		"buyer_toy_id is required; condition must be a known toy condition; name must be at most 10 characters long",
		err.Error())
}

func TestStructAcceptsValidRequest(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "robot", Condition: "new", BuyerToy: 3}))
}
