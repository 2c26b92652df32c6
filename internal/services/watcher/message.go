package watcher

import (
	"fmt"
	"time"

	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
)

// BuildRunMessage renders the subscriber push for a freshly confirmed
// run.
func BuildRunMessage(m model.Model, r run.Run, notifiedAt time.Time) string {
	emoji := m.Emoji
	if emoji == "" {
		emoji = "🌐"
	}
	return fmt.Sprintf(`%s *Nouveau run disponible !*

📊 *Modèle :* %s
⏰ *Run :* %02dh UTC
📅 *Date :* %s
🕐 *Notifié à :* %s UTC

🔗 *Liens :*
• [Meteociel](https://www.meteociel.fr/modeles/)
• [Windy](https://www.windy.com/)`,
		emoji,
		m.ID,
		r.Hour(),
		r.At.Format("02/01/2006"),
		notifiedAt.UTC().Format("15:04"),
	)
}
