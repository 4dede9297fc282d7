package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewValidator_ContactNumber(t *testing.T) {
	t.Parallel()

	v := NewValidator()

	type form struct {
		Number string `validate:"omitempty,contact_number"`
	}

	testCases := []struct {
		name    string
		number  string
		wantErr bool
	}{
		{name: "local landline", number: "082 227 1234"},
		{name: "mobile with country code", number: "+63 917 555 0100"},
		{name: "dashed", number: "0917-555-0100"},
		{name: "empty is allowed", number: ""},
		{name: "too short", number: "12345", wantErr: true},
		{name: "letters rejected", number: "call me maybe", wantErr: true},
		{name: "plus in the middle rejected", number: "0917+5550100", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(form{Number: tc.number})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
