// Package guard forces test mode on for any package that imports it,
// keeping runtime safeguards active during test runs.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FIREPIT_TEST_MODE") == "" {
			_ = os.Setenv("FIREPIT_TEST_MODE", "1")
		}
	})
}
