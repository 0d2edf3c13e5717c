package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedTokenGenerator(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"custom token", "run-123", "run-123"},
		{"uuid token", "01234567-89ab-cdef-0123-456789abcdef", "01234567-89ab-cdef-0123-456789abcdef"},
		{"empty token uses default", "", "test-run-default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewFixedTokenGenerator(tt.token)
			assert.Equal(t, tt.want, gen.Generate())
			assert.Equal(t, tt.want, gen.Generate())
		})
	}
}

func TestFixedTokenGenerator_ConcurrentUse(t *testing.T) {
	gen := NewFixedTokenGenerator("shared")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}
