package cron

import (
	"context"

	"github.com/Dias221467/Chat_Manager/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartMaintenanceCronJobs schedules housekeeping jobs. Stop the returned
// scheduler on shutdown.
func StartMaintenanceCronJobs(sweeper *jobs.ResetTokenSweeper) (*cron.Cron, error) {
	c := cron.New()

	// Expired password-reset codes
	if _, err := c.AddFunc("@hourly", func() {
		if err := sweeper.Run(context.Background()); err != nil {
			logrus.WithError(err).Error("ResetTokenSweeper failed")
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
