package redis

import "freight/internal/service"

// Ensure concrete types implement interfaces.
var (
	_ service.Locker         = (*LockStore)(nil)
	_ service.SettingsSource = (*CacheStore)(nil)
	_ service.EventEmitter   = (*EventPublisher)(nil)
)
