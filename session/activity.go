package session

import (
	"github.com/pterodactyl/hangar/internal/models"
)

const (
	ActivityRegister        = models.Event("auth:register")
	ActivityLogin           = models.Event("auth:login")
	ActivityLogout          = models.Event("auth:logout")
	ActivityFileWrite       = models.Event("file:write")
	ActivityFileCreate      = models.Event("file:create")
	ActivityCreateDirectory = models.Event("file:create-directory")
)

// ActivityRecorder stores activity events. Implementations are expected to
// return immediately and handle any failure on their own.
type ActivityRecorder interface {
	SaveActivity(a *models.Activity)
}

// saveActivity records an event for the user this session is authenticated as.
func (s *Session) saveActivity(event models.Event, metadata models.ActivityMeta) {
	s.saveActivityFor(s.username, event, metadata)
}

func (s *Session) saveActivityFor(user string, event models.Event, metadata models.ActivityMeta) {
	if s.activity == nil {
		return
	}
	s.activity.SaveActivity(&models.Activity{
		User:     user,
		Session:  s.id,
		Event:    event,
		Metadata: metadata,
		IP:       s.ip,
	})
}
