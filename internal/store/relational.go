package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/abhisek/socratic/internal/conceptgraph"
	"github.com/abhisek/socratic/internal/logger"
)

// userRow mirrors the users table. Users are created implicitly on
// their first session.
type userRow struct {
	ID string `gorm:"primaryKey"`
}

func (userRow) TableName() string { return "users" }

type sessionRow struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	StartedAt   time.Time
	ConceptData datatypes.JSON
	NextQIdx    int
	HintLevel   int
}

func (sessionRow) TableName() string { return "sessions" }

type turnRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index"`
	Timestamp time.Time
	Speaker   string
	Kind      string
	Text      string
	TimeSpent float64
}

func (turnRow) TableName() string { return "turns" }

type progressRow struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	SessionID         string `gorm:"uniqueIndex"`
	QuestionsAnswered int
	TotalQuestions    int
	ConceptsCovered   datatypes.JSON
	TimesPerQuestion  datatypes.JSON
}

func (progressRow) TableName() string { return "progress" }

// RelationalStore implements Store on a gorm-managed database.
type RelationalStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// OpenRelational connects to the database, verifies the connection and
// runs auto-migration (additive only, gorm never drops columns).
func OpenRelational(driver, dsn string, log *logger.Logger) (*RelationalStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.AutoMigrate(&userRow{}, &sessionRow{}, &turnRow{}, &progressRow{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	log.Info("relational store ready", "driver", driver)
	return &RelationalStore{db: db, log: log.With("store", "relational")}, nil
}

func (s *RelationalStore) CreateSession(ctx context.Context, rec *SessionRecord) error {
	conceptData, err := json.Marshal(rec.Concept)
	if err != nil {
		return fmt.Errorf("marshal concept snapshot: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&userRow{ID: rec.UserID}).Error; err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		row := sessionRow{
			ID:          rec.ID,
			UserID:      rec.UserID,
			StartedAt:   rec.StartedAt,
			ConceptData: conceptData,
			NextQIdx:    rec.NextQuestionIndex,
			HintLevel:   rec.HintLevel,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
}

func (s *RelationalStore) UpdateSessionCursor(ctx context.Context, sessionID string, nextQuestionIndex, hintLevel int) error {
	res := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"next_q_idx": nextQuestionIndex,
			"hint_level": hintLevel,
		})
	if res.Error != nil {
		return fmt.Errorf("update session cursor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RelationalStore) LoadSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sessionFromRow(&row)
}

func (s *RelationalStore) ListSessionsForUser(ctx context.Context, userID string) ([]SessionRecord, error) {
	var rows []sessionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]SessionRecord, 0, len(rows))
	for i := range rows {
		rec, err := sessionFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *RelationalStore) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&sessionRow{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

func sessionFromRow(row *sessionRow) (*SessionRecord, error) {
	var concept conceptgraph.Concept
	if len(row.ConceptData) > 0 {
		if err := json.Unmarshal(row.ConceptData, &concept); err != nil {
			return nil, fmt.Errorf("unmarshal concept snapshot for session %s: %w", row.ID, err)
		}
	}
	return &SessionRecord{
		ID:                row.ID,
		UserID:            row.UserID,
		StartedAt:         row.StartedAt,
		Concept:           concept,
		NextQuestionIndex: row.NextQIdx,
		HintLevel:         row.HintLevel,
	}, nil
}

func (s *RelationalStore) AppendTurn(ctx context.Context, rec *TurnRecord) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ?", rec.SessionID).Count(&count).Error; err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}

	row := turnRow{
		SessionID: rec.SessionID,
		Timestamp: rec.Timestamp,
		Speaker:   rec.Speaker,
		Kind:      rec.Kind,
		Text:      rec.Text,
		TimeSpent: rec.TimeSpent,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	rec.ID = row.ID
	return nil
}

func (s *RelationalStore) LoadTurns(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	var rows []turnRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	out := make([]TurnRecord, len(rows))
	for i, row := range rows {
		out[i] = TurnRecord{
			ID:        row.ID,
			SessionID: row.SessionID,
			Timestamp: row.Timestamp,
			Speaker:   row.Speaker,
			Kind:      row.Kind,
			Text:      row.Text,
			TimeSpent: row.TimeSpent,
		}
	}
	return out, nil
}

func (s *RelationalStore) SaveProgress(ctx context.Context, rec *ProgressRecord) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ?", rec.SessionID).Count(&count).Error; err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}

	covered, err := json.Marshal(rec.ConceptsCovered)
	if err != nil {
		return fmt.Errorf("marshal concepts covered: %w", err)
	}
	times, err := json.Marshal(rec.TimesPerQuestion)
	if err != nil {
		return fmt.Errorf("marshal question times: %w", err)
	}

	row := progressRow{
		SessionID:         rec.SessionID,
		QuestionsAnswered: rec.QuestionsAnswered,
		TotalQuestions:    rec.TotalQuestions,
		ConceptsCovered:   covered,
		TimesPerQuestion:  times,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"questions_answered", "total_questions", "concepts_covered", "times_per_question",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *RelationalStore) LoadProgress(ctx context.Context, sessionID string) (*ProgressRecord, error) {
	var row progressRow
	err := s.db.WithContext(ctx).First(&row, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	rec := &ProgressRecord{
		SessionID:         row.SessionID,
		QuestionsAnswered: row.QuestionsAnswered,
		TotalQuestions:    row.TotalQuestions,
	}
	if len(row.ConceptsCovered) > 0 {
		if err := json.Unmarshal(row.ConceptsCovered, &rec.ConceptsCovered); err != nil {
			return nil, fmt.Errorf("unmarshal concepts covered: %w", err)
		}
	}
	if len(row.TimesPerQuestion) > 0 {
		if err := json.Unmarshal(row.TimesPerQuestion, &rec.TimesPerQuestion); err != nil {
			return nil, fmt.Errorf("unmarshal question times: %w", err)
		}
	}
	return rec, nil
}

func (s *RelationalStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
