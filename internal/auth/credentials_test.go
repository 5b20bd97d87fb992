package auth

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentialStoreSetGetClear(t *testing.T) {
	s := NewCredentialStore()
	assert.Empty(t, s.Get())

	s.Set("abc")
	assert.Equal(t, "abc", s.Get())

	s.Set("def")
	assert.Equal(t, "def", s.Get())

	s.Clear()
	assert.Empty(t, s.Get())
}

func TestCredentialStoreConcurrentAccess(t *testing.T) {
	s := NewCredentialStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set("token")
		}()
		go func() {
			defer wg.Done()
			_ = s.Get()
		}()
	}
	wg.Wait()
	assert.Equal(t, "token", s.Get())
}
