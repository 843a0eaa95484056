// Package postgres persists plan usage and cached candidate analyses with gorm.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spigell/hirelytics/internal/analysis"
	"github.com/spigell/hirelytics/internal/plan"
)

type planUsage struct {
	UserID              string `gorm:"primaryKey;type:varchar(255)"`
	Plan                string `gorm:"type:varchar(16);not null"`
	ComparisonsThisWeek int    `gorm:"not null"`
	ComparisonsToday    int    `gorm:"not null"`
	LastComparisonDate  *time.Time
	WeekStartDate       time.Time `gorm:"not null"`
	UpdatedAt           time.Time
}

func (planUsage) TableName() string { return "plan_usages" }

type candidateAnalysis struct {
	ProjectID   string `gorm:"primaryKey;type:varchar(255)"`
	CandidateID string `gorm:"primaryKey;type:varchar(255)"`
	Score       int
	Data        string `gorm:"type:jsonb"`
	UpdatedAt   time.Time
}

func (candidateAnalysis) TableName() string { return "candidate_analyses" }

// Store implements plan.Store, candidates.AnalysisCache and candidates.AnalysisLoader.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to dsn and migrates both tables.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&planUsage{}, &candidateAnalysis{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return New(db, logger), nil
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Load(ctx context.Context, user string) (plan.State, error) {
	var row planUsage
	err := s.db.WithContext(ctx).First(&row, "user_id = ?", user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return plan.State{}, plan.ErrNoState
	}
	if err != nil {
		return plan.State{}, fmt.Errorf("load plan usage: %w", err)
	}

	state := row.state()
	if err := state.Validate(); err != nil {
		return plan.State{}, fmt.Errorf("invalid plan usage for %s: %w", user, err)
	}
	return state, nil
}

func (s *Store) Save(ctx context.Context, user string, state plan.State) error {
	row := usageRow(user, state)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save plan usage: %w", err)
	}
	return nil
}

func (s *Store) SaveAnalysis(ctx context.Context, projectID, candidateID string, a analysis.CandidateAnalysis) error {
	row, err := analysisRow(projectID, candidateID, a)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	s.logger.Debug("analysis cached", zap.String("project_id", projectID), zap.String("candidate_id", candidateID))
	return nil
}

func (s *Store) LoadAnalyses(ctx context.Context, projectID string) (map[string]analysis.CandidateAnalysis, error) {
	var rows []candidateAnalysis
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load analyses: %w", err)
	}
	return analysesByCandidate(rows)
}

func usageRow(user string, state plan.State) planUsage {
	row := planUsage{
		UserID:              user,
		Plan:                string(state.Plan),
		ComparisonsThisWeek: state.Usage.ComparisonsThisWeek,
		ComparisonsToday:    state.Usage.ComparisonsToday,
		WeekStartDate:       state.Usage.WeekStartDate,
	}
	if !state.Usage.LastComparisonDate.IsZero() {
		last := state.Usage.LastComparisonDate
		row.LastComparisonDate = &last
	}
	return row
}

func (r planUsage) state() plan.State {
	state := plan.State{
		Plan: plan.Tier(r.Plan),
		Usage: plan.Usage{
			ComparisonsThisWeek: r.ComparisonsThisWeek,
			ComparisonsToday:    r.ComparisonsToday,
			WeekStartDate:       r.WeekStartDate,
		},
	}
	if r.LastComparisonDate != nil {
		state.Usage.LastComparisonDate = *r.LastComparisonDate
	}
	return state
}

func analysisRow(projectID, candidateID string, a analysis.CandidateAnalysis) (candidateAnalysis, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return candidateAnalysis{}, fmt.Errorf("encode analysis: %w", err)
	}
	return candidateAnalysis{
		ProjectID:   projectID,
		CandidateID: candidateID,
		Score:       a.Score,
		Data:        string(data),
	}, nil
}

func (r candidateAnalysis) analysis() (analysis.CandidateAnalysis, error) {
	var a analysis.CandidateAnalysis
	if err := json.Unmarshal([]byte(r.Data), &a); err != nil {
		return a, fmt.Errorf("decode analysis of %s/%s: %w", r.ProjectID, r.CandidateID, err)
	}
	return a, nil
}

func analysesByCandidate(rows []candidateAnalysis) (map[string]analysis.CandidateAnalysis, error) {
	out := make(map[string]analysis.CandidateAnalysis, len(rows))
	for _, r := range rows {
		a, err := r.analysis()
		if err != nil {
			return nil, err
		}
		out[r.CandidateID] = a
	}
	return out, nil
}
