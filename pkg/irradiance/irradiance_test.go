package irradiance

import (
	"log/slog"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}
