package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInfo_String(t *testing.T) {
	tests := []struct {
		name string
		info buildInfo
		want string
	}{
		{
			name: "no vcs information",
			info: buildInfo{Version: "(devel)", GoVersion: "go1.25.6", Commit: unknown, BuildTime: unknown},
			want: "version: (devel)\ngo: go1.25.6\n",
		},
		{
			name: "clean checkout",
			info: buildInfo{Version: "v1.2.0", GoVersion: "go1.25.6", Commit: "abc123", BuildTime: "2026-01-02T03:04:05Z"},
			want: "version: v1.2.0\ngo: go1.25.6\ncommit: abc123\nbuilt: 2026-01-02T03:04:05Z\n",
		},
		{
			name: "dirty checkout",
			info: buildInfo{Version: "v1.2.0", GoVersion: "go1.25.6", Commit: "abc123", BuildTime: unknown, Modified: true},
			want: "version: v1.2.0\ngo: go1.25.6\ncommit: abc123 (dirty)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}
