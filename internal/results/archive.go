package results

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tautrack/internal/log"
	"tautrack/internal/trajectory"
)

// RunRecord is one archived pipeline run
type RunRecord struct {
	ID            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	Threshold     float64
	Bandwidth     float64
	GridStep      float64
	MinSupport    int
	Subjects      int
	Observations  int
	TruncatedLow  bool
	TruncatedHigh bool
}

// SubjectEstimateRecord is one subject's archived crossing-age estimate
type SubjectEstimateRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	RunID          string `gorm:"index"`
	SubjectID      string
	AgeAtThreshold float64
	Extrapolated   bool
}

// Archive persists runs and their subject estimates to Postgres
type Archive struct {
	DB     *gorm.DB
	logger *zap.SugaredLogger
}

// NewArchive connects to Postgres and migrates the archive tables
func NewArchive(connectionString string, zlogger *zap.SugaredLogger) (*Archive, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("connecting to archive database: %w", err)
	}

	if err := db.AutoMigrate(&RunRecord{}, &SubjectEstimateRecord{}); err != nil {
		return nil, fmt.Errorf("migrating archive tables: %w", err)
	}

	return &Archive{DB: db, logger: zlogger}, nil
}

// SaveRun archives one run with its subject estimates and returns the run ID
func (a *Archive) SaveRun(params trajectory.Params, traj *trajectory.Trajectory, estimates []trajectory.SubjectEstimate, observations int) (string, error) {
	runID := uuid.New().String()

	run := RunRecord{
		ID:            runID,
		CreatedAt:     time.Now(),
		Threshold:     params.Threshold,
		Bandwidth:     params.Bandwidth,
		GridStep:      params.GridStep,
		MinSupport:    params.MinSupport,
		Subjects:      len(estimates),
		Observations:  observations,
		TruncatedLow:  traj.TruncatedLow,
		TruncatedHigh: traj.TruncatedHigh,
	}

	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		for _, est := range estimates {
			rec := SubjectEstimateRecord{
				RunID:          runID,
				SubjectID:      est.SubjectID,
				AgeAtThreshold: est.AgeAtThreshold,
				Extrapolated:   est.Extrapolated,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("archiving run: %w", err)
	}

	a.logger.Infof("archived run %s with %d subject estimates", runID, len(estimates))
	return runID, nil
}
