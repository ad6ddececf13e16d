package logger

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// instanceID склеивает hostname и короткий uuid, чтобы различать реплики в одном поде.
func instanceID(v string) string {
	if v != "" {
		return v
	}
	hn, err := os.Hostname()
	if err != nil || hn == "" {
		hn = "chat"
	}
	return hn + "-" + uuid.NewString()[:8]
}

// commonAttr собирает поля, которые есть в каждой записи. Attrs из конфига идут следом,
// пустые строки пропускаются.
func commonAttr(cfg Config) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
	}
	for _, a := range cfg.Attrs {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			continue
		}
		attrs = append(attrs, a)
	}
	return attrs
}
