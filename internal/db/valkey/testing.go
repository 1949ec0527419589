package valkey

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client, flavor Flavor) *Store {
	if flavor == "" {
		flavor = FlavorValkey
	}
	return &Store{client: c, flavor: flavor}
}
