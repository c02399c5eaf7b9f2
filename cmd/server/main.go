package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mailsched/internal/config"
	"mailsched/internal/mailer"
	"mailsched/internal/metrics"
	"mailsched/internal/scheduler"
	"mailsched/internal/service"
	"mailsched/internal/store"
	"mailsched/internal/window"
	"mailsched/web"
)

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mailsched",
		Short: "Deferred email delivery scheduler",
		Long: `mailsched schedules outbound emails for later delivery, deferring
business-window jobs into weekday working hours of the requested
time zone and retrying failed sends with increasing backoff.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	jobStore := store.NewMemoryStore()
	policy := window.NewPolicy()

	var sender mailer.Sender
	if cfg.UseQueueWriter {
		queueSender, err := mailer.NewQueueSender(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer queueSender.Close()
		sender = queueSender
		log.Printf("delivery via queue %s", cfg.RabbitMQ.Queue)
	} else {
		sender = mailer.NewSMTPSender(cfg.SendTimeout())
	}

	sched := scheduler.New(jobStore, sender, collector, cfg.SweepInterval(), cfg.SendTimeout(), int64(cfg.MaxConcurrentSends))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	jobs := service.NewJobService(jobStore, policy, collector, cfg.DefaultTimeZone, cfg.MaxAttempts)
	handler := web.NewRouteHandler(jobs, collector.Handler(), cfg.Port)

	log.Printf("instance=%s starting", cfg.Instance)
	if err := handler.Serve(ctx); err != nil {
		return err
	}
	log.Println("shutdown complete")
	return nil
}
