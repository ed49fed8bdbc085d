package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid sheets config",
			cfg: Config{
				TelegramToken:   "token",
				OperatorChatID:  1,
				StoreBackend:    "sheets",
				SpreadsheetID:   "sheet-id",
				GoogleCredsJSON: `{"type":"service_account"}`,
			},
		},
		{
			name: "valid memory config",
			cfg: Config{
				TelegramToken:  "token",
				OperatorChatID: 1,
				StoreBackend:   "memory",
			},
		},
		{
			name:    "missing telegram token",
			cfg:     Config{OperatorChatID: 1, StoreBackend: "memory"},
			wantErr: true,
		},
		{
			name:    "missing operator chat",
			cfg:     Config{TelegramToken: "token", StoreBackend: "memory"},
			wantErr: true,
		},
		{
			name: "sheets without spreadsheet id",
			cfg: Config{
				TelegramToken:   "token",
				OperatorChatID:  1,
				StoreBackend:    "sheets",
				GoogleCredsJSON: "{}",
			},
			wantErr: true,
		},
		{
			name: "sheets without credentials",
			cfg: Config{
				TelegramToken:  "token",
				OperatorChatID: 1,
				StoreBackend:   "sheets",
				SpreadsheetID:  "sheet-id",
			},
			wantErr: true,
		},
		{
			name: "unknown backend",
			cfg: Config{
				TelegramToken:  "token",
				OperatorChatID: 1,
				StoreBackend:   "postgres",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
