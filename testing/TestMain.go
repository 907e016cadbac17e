package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("CORPBANK_TEST_MODE", "1")
		if os.Getenv("PHONE_DEFAULT_REGION") == "" {
			_ = os.Setenv("PHONE_DEFAULT_REGION", "BR")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
