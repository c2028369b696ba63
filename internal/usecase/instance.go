package usecase

import "sync"

var (
	instanceOnce sync.Once
	instance     *DataManager
)

// Instance returns a process-wide shared manager, constructing it on first
// call. Primary wiring goes through the DI graph; this accessor exists for
// consumers outside it that must not pay construction cost per render. First
// caller wins: later calls ignore their argument.
func Instance(construct func() *DataManager) *DataManager {
	instanceOnce.Do(func() {
		instance = construct()
	})
	return instance
}
