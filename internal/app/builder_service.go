package app

import (
	"io"

	"github.com/husnusametd/spectra/internal/config"
	"github.com/husnusametd/spectra/internal/gateway/notifier"
	"github.com/husnusametd/spectra/internal/logger"
	statushttp "github.com/husnusametd/spectra/internal/transport/http/status"
)

// buildNotifier fans out to every configured channel and falls back to a
// preview on out when none is.
func buildNotifier(cfg config.NotifyConfig, out io.Writer) notifier.Notifier {
	var channels notifier.Fanout
	if cfg.Telegram.Enabled {
		channels = append(channels, notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	if cfg.SMTP.Enabled {
		smtpCfg := notifier.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		}
		if smtpCfg.Configured() {
			channels = append(channels, notifier.NewSMTP(smtpCfg))
		} else {
			logger.Warnf("[notify] smtp enabled but credentials are missing, skipping")
		}
	}
	switch len(channels) {
	case 0:
		return notifier.NewPreview(out)
	case 1:
		return channels[0]
	default:
		return channels
	}
}

func buildStatusServer(cfg config.AppConfig, deps statushttp.ServerConfig) *statushttp.Server {
	deps.Addr = cfg.HTTPAddr
	return statushttp.NewServer(deps)
}
