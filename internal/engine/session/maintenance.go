package session

import (
	"github.com/robfig/cron/v3"
)

// StartCleanupSchedule registers a periodic cleanup sweep on the given cron
// scheduler, following the teacher's scheduler_service.go pattern of
// registering named jobs against a shared *cron.Cron. It does not start the
// scheduler; the caller calls c.Start(). Returns the
// entry ID so the caller can Remove() it on shutdown.
func (m *Manager) StartCleanupSchedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		m.Cleanup()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
