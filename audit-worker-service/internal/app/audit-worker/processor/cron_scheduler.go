package processor

import (
	"context"
	"log"
	"time"

	"orchardfleet/audit-worker-service/internal/app/audit-worker/service"

	"github.com/robfig/cron/v3"
)

type CronScheduler struct {
	cron     *cron.Cron
	auditSvc service.AuditServiceInterface
}

func NewCronScheduler(auditSvc service.AuditServiceInterface) *CronScheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(log.Default())))

	return &CronScheduler{
		cron:     c,
		auditSvc: auditSvc,
	}
}

// Start запускает расписание суточной агрегации.
// Агрегируется всегда вчерашний день: на момент запуска по расписанию
// он уже закрыт и счетчики финальны.
func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	log.Printf("Starting cron scheduler with schedule: %s", schedule)

	_, err := s.cron.AddFunc(schedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		log.Printf("Cron job triggered: aggregating security stats for %s", yesterday.Format("2006-01-02"))

		if err := s.auditSvc.AggregateDay(ctx, yesterday); err != nil {
			log.Printf("ERROR: Failed to aggregate security stats: %v", err)
		} else {
			log.Println("Cron job completed: security stats aggregated successfully")
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("Cron scheduler started")

	// Первичная агрегация при старте: после простоя воркера вчерашние
	// счетчики могли не записаться
	log.Println("Performing initial security stats aggregation...")
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	if err := s.auditSvc.AggregateDay(ctx, yesterday); err != nil {
		log.Printf("WARNING: Failed initial security stats aggregation: %v", err)
	} else {
		log.Println("Initial security stats aggregation completed")
	}

	return nil
}

func (s *CronScheduler) Stop() {
	log.Println("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
