package plaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid sandbox config",
			cfg:     Config{ClientID: "id", Secret: "secret", Environment: "sandbox"},
			wantErr: false,
		},
		{
			name:    "valid production config",
			cfg:     Config{ClientID: "id", Secret: "secret", Environment: "production"},
			wantErr: false,
		},
		{
			name:    "missing client id",
			cfg:     Config{Secret: "secret", Environment: "sandbox"},
			wantErr: true,
		},
		{
			name:    "missing secret",
			cfg:     Config{ClientID: "id", Environment: "sandbox"},
			wantErr: true,
		},
		{
			name:    "missing environment",
			cfg:     Config{ClientID: "id", Secret: "secret"},
			wantErr: true,
		},
		{
			name:    "unknown environment",
			cfg:     Config{ClientID: "id", Secret: "secret", Environment: "development"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCleanMerchantName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases then title-cases", input: "STARBUCKS COFFEE", want: "Starbucks Coffee"},
		{name: "strips trailing transaction id", input: "AMAZON MKTPLACE 883301", want: "Amazon Mktplace"},
		{name: "keeps short trailing number", input: "TERMINAL 21", want: "Terminal 21"},
		{name: "removes corporate suffix", input: "ACME WIDGETS LLC", want: "Acme Widgets"},
		{name: "removes stacked suffixes", input: "ACME CO LTD", want: "Acme"},
		{name: "title-cases after punctuation", input: "wal-mart", want: "Wal-Mart"},
		{name: "empty input", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMerchantName(tt.input))
		})
	}
}

func TestIsAllDigits(t *testing.T) {
	assert.True(t, isAllDigits("123456"))
	assert.False(t, isAllDigits("123a56"))
	assert.True(t, isAllDigits(""))
}
