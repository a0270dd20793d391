package main

import (
	"context"
	"errors"

	"github.com/sakuffo/sakwatch/internal/config"
	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/output"
	"github.com/sakuffo/sakwatch/internal/output/async"
	"github.com/sakuffo/sakwatch/internal/output/file"
	"github.com/sakuffo/sakwatch/internal/output/mongo"
	"github.com/sakuffo/sakwatch/internal/output/multi"
	"github.com/sakuffo/sakwatch/internal/output/stdout"
	"github.com/sakuffo/sakwatch/internal/output/telegram"
	"github.com/sakuffo/sakwatch/internal/output/webhook"
	"github.com/sakuffo/sakwatch/internal/storage"
)

var errNoOutputs = errors.New("no export outputs configured")

// buildOutput opens every configured output and fans documents out to all of
// them. Network outputs that notify people are decoupled through async.
func buildOutput(ctx context.Context, cfg config.ExportConfig, log logger.Logger) (output.Output, error) {
	var outs []output.Output
	fail := func(err error) (output.Output, error) {
		for _, o := range outs {
			o.Close()
		}
		return nil, err
	}

	if cfg.Stdout.Enabled {
		outs = append(outs, stdout.New(cfg.Stdout.Text))
	}
	if cfg.File.Path != "" {
		f, err := file.New(cfg.File.Path,
			file.WithMaxSize(cfg.File.MaxSize),
			file.WithBufSize(cfg.File.BufSize),
		)
		if err != nil {
			return fail(err)
		}
		outs = append(outs, f)
	}
	if cfg.Local.BasePath != "" {
		storageCfg := storage.DefaultConfig()
		storageCfg.BasePath = cfg.Local.BasePath
		ls, err := storage.NewLocalStorage(storageCfg)
		if err != nil {
			return fail(err)
		}
		outs = append(outs, ls)
	}
	if cfg.Webhook.URL != "" {
		var w output.Output = webhook.New(cfg.Webhook.URL, log,
			webhook.WithHeaders(cfg.Webhook.Headers),
			webhook.WithBatchSize(cfg.Webhook.BatchSize),
			webhook.WithFlushInterval(cfg.Webhook.FlushInterval),
			webhook.WithTimeout(cfg.Webhook.Timeout),
			webhook.WithOnError(reportDropped(log, "webhook "+cfg.Webhook.URL)),
		)
		if cfg.Webhook.Async {
			w = queued(w, cfg, log, "webhook")
		}
		outs = append(outs, w)
	}
	if cfg.Mongo.URI != "" {
		m, err := mongo.New(ctx, mongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			TTLDays:    cfg.Mongo.TTLDays,
		}, log)
		if err != nil {
			return fail(err)
		}
		outs = append(outs, m)
	}
	if cfg.Telegram.BotToken != "" {
		tg, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatIDs, log)
		if err != nil {
			return fail(err)
		}
		outs = append(outs, queued(tg, cfg, log, "telegram"))
	}

	if len(outs) == 0 {
		return nil, errNoOutputs
	}
	log.Info("Exporting events to %d output(s)", len(outs))
	return multi.New(outs...), nil
}

// queued puts out behind a drop-on-full queue so a slow endpoint never stalls
// event delivery.
func queued(out output.Output, cfg config.ExportConfig, log logger.Logger, name string) output.Output {
	return async.New(out, log,
		async.WithBufferSize(cfg.AsyncBufferSize),
		async.WithDropOnFull(),
		async.WithOnError(reportDropped(log, name)),
	)
}

func reportDropped(log logger.Logger, name string) func(error) {
	return func(err error) {
		log.Error("Export to %s failed, documents dropped: %v", name, err)
	}
}
