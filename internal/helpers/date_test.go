package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelativeTimeString(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "rfc3339", input: "2025-03-10T09:00:00Z", want: "3 hours ago"},
		{name: "sqlite timestamp", input: "2025-03-10 11:59:00", want: "1 minute ago"},
		{name: "date only", input: "2025-03-03", want: "7 days ago"},
		{name: "just now", input: "2025-03-10T12:00:00Z", want: "1 second ago"},
		{name: "months", input: "2024-12-01T12:00:00Z", want: "3 months ago"},
		{name: "years", input: "2023-01-01T00:00:00Z", want: "2 years ago"},
		{name: "future", input: "2025-03-12T12:00:00Z", want: "2 days from now"},
		{name: "invalid", input: "invalid-date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelativeTimeString(tt.input, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
