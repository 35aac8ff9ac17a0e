package services

import (
	"testing"
	"time"

	"planning-poker-backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Participant{},
		&models.Story{},
		&models.Vote{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newServices(t *testing.T) (*gorm.DB, *SessionService, *StoryService, *VoteService) {
	t.Helper()
	db := newTestDB(t)
	sessions := NewSessionService(db)
	stories := NewStoryService(db, sessions)
	votes := NewVoteService(db, NewTallyService(), sessions)
	return db, sessions, stories, votes
}

func activeSession(t *testing.T, db *gorm.DB, sessions *SessionService, code string) *models.Session {
	t.Helper()

	session, err := sessions.CreateSession(1, CreateSessionInput{Name: "Sprint planning", Code: code})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	started, err := sessions.StartSession(session.ID, 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return started
}

func addParticipant(t *testing.T, db *gorm.DB, sessionID uint, nickname, role string) *models.Participant {
	t.Helper()

	p := models.Participant{
		SessionID: sessionID,
		Nickname:  nickname,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create participant %s: %v", nickname, err)
	}
	return &p
}

func votingStory(t *testing.T, stories *StoryService, sessionID uint, title string) *models.Story {
	t.Helper()

	story, err := stories.AddStory(sessionID, AddStoryInput{Title: title})
	if err != nil {
		t.Fatalf("add story: %v", err)
	}
	story, err = stories.StartVoting(story.ID)
	if err != nil {
		t.Fatalf("start voting: %v", err)
	}
	return story
}
