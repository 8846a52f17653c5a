package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilenamePart(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"ascii kept", "march-2025_v2", "march-2025_v2"},
		{"korean kept", "홍길동 3월 기록지", "홍길동_3월_기록지"},
		{"path separators replaced", "../../etc/passwd", "______etc_passwd"},
		{"dots replaced", "a.b.c", "a_b_c"},
		{"long names cut", strings.Repeat("가", 50), strings.Repeat("가", 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilenamePart(tt.input))
		})
	}
}

func TestShortJobID(t *testing.T) {
	assert.Equal(t, "01HX", ShortJobID("01HX"))
	assert.Equal(t, "5X9QK2ZT", ShortJobID("01JNQ4W8Y3ZV9R7H2M5X9QK2ZT"))
}
