package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	env := map[string]string{"ADMIN_PASSWORD": "from-env"}
	getenv := func(k string) string { return env[k] }
	noEnv := func(string) string { return "" }

	tests := []struct {
		name    string
		args    []string
		getenv  func(string) string
		want    superuserOptions
		wantErr bool
	}{
		{
			name:   "flags",
			args:   []string{"createsuperuser", "-email", "admin@example.com", "-password", "secret"},
			getenv: noEnv,
			want:   superuserOptions{email: "admin@example.com", password: "secret"},
		},
		{
			name:   "password from env",
			args:   []string{"createsuperuser", "-email", "admin@example.com"},
			getenv: getenv,
			want:   superuserOptions{email: "admin@example.com", password: "from-env"},
		},
		{name: "no command", args: nil, getenv: getenv, wantErr: true},
		{name: "unknown command", args: []string{"dropdb"}, getenv: getenv, wantErr: true},
		{name: "missing email", args: []string{"createsuperuser"}, getenv: getenv, wantErr: true},
		{name: "missing password", args: []string{"createsuperuser", "-email", "a@b.com"}, getenv: noEnv, wantErr: true},
		{name: "unknown flag", args: []string{"createsuperuser", "-staff"}, getenv: getenv, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args, tt.getenv, io.Discard)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
