package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DigestSender is the slice of the service the scheduler drives.
type DigestSender interface {
	SendDueInstallmentDigest(ctx context.Context) (int, error)
}

// Scheduler runs the daily due-installment scan. It only reads plan state
// and notifies; it never mutates plans.
type Scheduler struct {
	cron   *cron.Cron
	sender DigestSender
	spec   string
}

func New(sender DigestSender, spec string) *Scheduler {
	if spec == "" {
		spec = "0 7 * * *"
	}
	return &Scheduler{
		cron:   cron.New(),
		sender: sender,
		spec:   spec,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.runDigest)
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] due-installment digest scheduled (%s)", s.spec)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.sender.SendDueInstallmentDigest(ctx)
	if err != nil {
		log.Printf("[scheduler] WARN: due-installment digest failed: %v", err)
		return
	}
	log.Printf("[scheduler] due-installment digest sent (%d plans due)", due)
}
