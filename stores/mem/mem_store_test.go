package mem_test

import (
	"testing"

	eventrt "github.com/eventrt/eventrt"
	"github.com/eventrt/eventrt/internal/storetest"
	"github.com/eventrt/eventrt/stores/mem"
)

func TestStore_Compliance(t *testing.T) {
	t.Parallel()
	storetest.Run(t, func(t *testing.T) eventrt.Store {
		t.Helper()
		return mem.New()
	})
}
