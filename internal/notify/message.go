package notify

import (
	"fmt"
	"time"
)

// clockLayout renders "14:30 hs del 05/09" for the lead message.
const clockLayout = "15:04 hs del 02/01"

// leadMessage renders the advance warning sent leadHours before a session.
// The clock part is shown in the channel's display timezone.
func leadMessage(sessionName, eventName string, leadHours int, startAt time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"🏎️ *¡Atención!* La sesión **%s** de **%s** comienza en %d horas (a las %s).",
		sessionName, eventName, leadHours, startAt.In(loc).Format(clockLayout),
	)
}

// startMessage renders the alert sent at the session start instant.
func startMessage(sessionName, eventName string) string {
	return fmt.Sprintf(
		"🟢 *¡Arrancó!* La sesión **%s** de **%s** ha comenzado.",
		sessionName, eventName,
	)
}
