package dto

import (
	"encoding/json"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindJSON(t *testing.T, raw string, out any) error {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(raw), out))
	return binding.Validator.ValidateStruct(out)
}

func TestCreateIntentRequest_Valid(t *testing.T) {
	var req CreateIntentRequest
	err := bindJSON(t, `{"amount":2500,"currency":"usd","capture_method":"manual"}`, &req)
	assert.NoError(t, err)
}

func TestCreateIntentRequest_RejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"zero amount":     `{"amount":0,"currency":"usd"}`,
		"negative amount": `{"amount":-5,"currency":"usd"}`,
		"long currency":   `{"amount":100,"currency":"usdollar"}`,
		"digit currency":  `{"amount":100,"currency":"u5d"}`,
		"bad capture":     `{"amount":100,"currency":"usd","capture_method":"later"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var req CreateIntentRequest
			assert.Error(t, bindJSON(t, raw, &req))
		})
	}
}

func TestPaymentMethod_UnmarshalsTokenString(t *testing.T) {
	var req ConfirmIntentRequest
	err := bindJSON(t, `{"payment_method":"tok_abc123"}`, &req)
	require.NoError(t, err)
	assert.Equal(t, "tok_abc123", req.PaymentMethod.Token)
	assert.Nil(t, req.PaymentMethod.Card)
}

func TestPaymentMethod_UnmarshalsCardObject(t *testing.T) {
	var req ConfirmIntentRequest
	err := bindJSON(t, `{"payment_method":{"card":{"number":"4242424242424242","exp_month":12,"exp_year":2030,"cvc":"123"}},"return_url":"https://shop.example.com/done"}`, &req)
	require.NoError(t, err)
	require.NotNil(t, req.PaymentMethod.Card)
	assert.Equal(t, "4242424242424242", req.PaymentMethod.Card.Number)
	assert.Equal(t, "https://shop.example.com/done", req.ReturnURL)
}

func TestPaymentMethod_RejectsOtherShapes(t *testing.T) {
	var pm PaymentMethod
	assert.Error(t, json.Unmarshal([]byte(`42`), &pm))
}

func TestConfirmIntentRequest_RejectsBadReturnURL(t *testing.T) {
	var req ConfirmIntentRequest
	err := bindJSON(t, `{"payment_method":"tok_abc","return_url":"not a url"}`, &req)
	assert.Error(t, err)
}

func TestCustomerRequest_RejectsBadEmail(t *testing.T) {
	var req CustomerRequest
	err := bindJSON(t, `{"email":"not-an-email"}`, &req)
	assert.Error(t, err)
}
