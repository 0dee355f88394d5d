// Package guard forces test mode so binaries under test skip runtime side
// effects. Blank-import it from any test package that touches main-path code.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TILLBOOK_TEST_MODE") == "" {
			_ = os.Setenv("TILLBOOK_TEST_MODE", "1")
		}
	})
}
