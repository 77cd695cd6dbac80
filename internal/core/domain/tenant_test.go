package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTenantID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    TenantID
		wantErr bool
	}{
		{name: "plain", raw: "acme", want: "acme"},
		{name: "trims whitespace", raw: "  acme \n", want: "acme"},
		{name: "keeps inner spaces", raw: "acme corp", want: "acme corp"},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace only", raw: " \t ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTenantID(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTenantRequired)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTenantID_Validate(t *testing.T) {
	assert.NoError(t, TenantID("acme").Validate())
	assert.ErrorIs(t, TenantID("").Validate(), ErrTenantRequired)
	assert.ErrorIs(t, TenantID("   ").Validate(), ErrTenantRequired)
	assert.Equal(t, "acme", TenantID("acme").String())
}
