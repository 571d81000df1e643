package cron

import (
	"github.com/sirupsen/logrus"
)

// ApprovalExpirer fails approvals that waited too long.
type ApprovalExpirer interface {
	ExpireStale() int
}

// SnapshotWriter persists the network list.
type SnapshotWriter interface {
	SaveSnapshot(path string) error
	Count() int
}

func NewExpireApprovalsTask(approvals ApprovalExpirer, logger *logrus.Logger) Task {
	return func() error {
		if n := approvals.ExpireStale(); n > 0 {
			logger.Debugf("Expired %d approval requests", n)
		}
		return nil
	}
}

func NewSnapshotNetworksTask(networks SnapshotWriter, path string, logger *logrus.Logger) Task {
	return func() error {
		if err := networks.SaveSnapshot(path); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"path":     path,
			"networks": networks.Count(),
		}).Debug("Network snapshot written")
		return nil
	}
}
