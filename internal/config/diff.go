package config

import (
	"strings"

	logx "taskplan/pkg/logx"
)

// SummarizeConfigChange returns the changed sections and safe structured
// attrs for logging. The notifier token is never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.String("http.addr", strings.TrimSpace(newCfg.HTTP.Addr)),
			logx.Int("http.rate_per_sec", newCfg.HTTP.RatePerSec),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", strings.TrimSpace(newCfg.Storage.Path)),
		)
	}

	on, nn := derefNotifier(oldCfg.Notifier), derefNotifier(newCfg.Notifier)
	if on != nn {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", nn.Enabled),
			logx.Bool("notifier.token_set", strings.TrimSpace(nn.Token) != ""),
			logx.Int64("notifier.chat_id", nn.ChatID),
			logx.Int("notifier.rate_per_sec", nn.RatePerSec),
		)
	}

	od, nd := derefDigest(oldCfg.Digest), derefDigest(newCfg.Digest)
	if od != nd {
		changed = append(changed, "digest")
		attrs = append(attrs,
			logx.Bool("digest.enabled", nd.Enabled),
			logx.String("digest.schedule", nd.Schedule),
			logx.String("digest.timezone", nd.Timezone),
		)
	}

	oldDbg, newDbg := derefDebug(oldCfg.Debug), derefDebug(newCfg.Debug)
	if oldDbg != newDbg {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", newDbg.Enabled),
			logx.String("debug.addr", newDbg.Addr),
			logx.Bool("debug.token_set", newDbg.Token != ""),
		)
	}

	return changed, attrs
}

func derefNotifier(n *NotifierConfig) NotifierConfig {
	if n == nil {
		return NotifierConfig{}
	}
	return *n
}

func derefDigest(d *DigestConfig) DigestConfig {
	if d == nil {
		return DigestConfig{}
	}
	return *d
}

func derefDebug(d *DebugConfig) DebugConfig {
	if d == nil {
		return DebugConfig{}
	}
	return *d
}
