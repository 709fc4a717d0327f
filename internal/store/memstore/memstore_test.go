package memstore

import (
	"testing"
	"time"

	"github.com/marcus/taskbot/internal/store"
	"github.com/marcus/taskbot/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) store.Store {
		return NewWithClock(now)
	})
}
