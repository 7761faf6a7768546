package service

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
)

// 2024-03-04 is a Monday.
var mondayEvening = time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, db *gorm.DB, dispatcher *recordingDispatcher, at time.Time, opts NotificationEngineOptions) *notificationEngine {
	t.Helper()
	opts.Location = time.UTC
	engine := NewNotificationEngine(
		repository.NewUserRepository(db),
		repository.NewTimeSlotRepository(db),
		repository.NewQuizRepository(db),
		dispatcher,
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
		opts,
	).(*notificationEngine)
	engine.now = fixedClock(at)
	return engine
}

func seedCompletedQuiz(t *testing.T, db *gorm.DB, studentID uint, subject string, correct, total int, completedAt time.Time) models.Quiz {
	t.Helper()
	score := float64(correct) * 100 / float64(total)
	quiz := models.Quiz{
		StudentID:      studentID,
		Subject:        subject,
		Status:         models.QuizStatusCompleted,
		TotalQuestions: total,
		CorrectAnswers: correct,
		Score:          &score,
		CompletedAt:    &completedAt,
	}
	require.NoError(t, db.Create(&quiz).Error)
	return quiz
}

func TestUnfinishedWorkNotifiesStudentThenParent(t *testing.T) {
	db := newTestDB(t)
	parent := seedUser(t, db, models.User{FirstName: "Ama", LastName: "Mensah", Email: "ama@example.com", Role: models.RoleParent})
	student := seedUser(t, db, models.User{FirstName: "Kofi", LastName: "Mensah", Email: "kofi@example.com", Role: models.RoleStudent, ParentID: &parent.ID})

	seedSlot(t, db, student.ID, models.Monday, "19:00-19:30", "Revision", false)
	seedSlot(t, db, student.ID, models.Monday, "18:00-18:50", "Revision", false)
	seedSlot(t, db, student.ID, models.Monday, "18:50-19:00", "Break", false)
	seedSlot(t, db, student.ID, models.Monday, "20:00-20:30", "Revision", true)
	seedSlot(t, db, student.ID, models.Tuesday, "18:00-18:50", "Revision", false)

	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(t, db, dispatcher, mondayEvening, NotificationEngineOptions{})

	report, err := engine.RunUnfinishedWorkCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Dispatched)
	require.Zero(t, report.Failed)

	sent := dispatcher.messages()
	require.Len(t, sent, 2)
	require.Equal(t, "kofi@example.com", sent[0].To)
	require.Equal(t, "ama@example.com", sent[1].To)
	require.Equal(t, "Homework Not Completed - Kofi Mensah", sent[0].Subject)
	require.Equal(t, "Homework Not Completed - Kofi Mensah", sent[1].Subject)

	for _, mail := range sent {
		first := strings.Index(mail.Body, "18:00-18:50")
		second := strings.Index(mail.Body, "19:00-19:30")
		require.GreaterOrEqual(t, first, 0)
		require.Greater(t, second, first, "items are listed in time order")
		breakAt := strings.Index(mail.Body, "18:50-19:00")
		require.Greater(t, breakAt, first, "unfinished breaks are listed too")
		require.Greater(t, second, breakAt)
		require.NotContains(t, mail.Body, "20:00-20:30", "completed slots are not reported")
	}
	require.Contains(t, sent[1].Body, "Dear Ama Mensah")

	again, err := engine.RunUnfinishedWorkCheck(context.Background())
	require.NoError(t, err)
	require.Zero(t, again.Dispatched)
	require.Equal(t, 1, again.Skipped)
	require.Len(t, dispatcher.messages(), 2, "second run in the same window is deduplicated")
}

func TestUnfinishedWorkReportsBreakOnlyDay(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.User{FirstName: "Yaw", Email: "yaw@example.com", Role: models.RoleStudent})
	seedSlot(t, db, student.ID, models.Monday, "17:00-17:15", "Break", false)

	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(t, db, dispatcher, mondayEvening, NotificationEngineOptions{})

	report, err := engine.RunUnfinishedWorkCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Dispatched)

	sent := dispatcher.messages()
	require.Len(t, sent, 1)
	require.Equal(t, "yaw@example.com", sent[0].To)
	require.Contains(t, sent[0].Body, "17:00-17:15")
}

func TestUnfinishedWorkSkipsParentWithoutUsableEmail(t *testing.T) {
	db := newTestDB(t)
	parent := seedUser(t, db, models.User{FirstName: "Efua", Email: "not-an-email", Role: models.RoleParent})
	student := seedUser(t, db, models.User{FirstName: "Kwame", Email: "kwame@example.com", Role: models.RoleStudent, ParentID: &parent.ID})
	done := seedUser(t, db, models.User{FirstName: "Abena", Email: "abena@example.com", Role: models.RoleStudent})

	seedSlot(t, db, student.ID, models.Monday, "18:00-18:50", "Revision", false)
	seedSlot(t, db, done.ID, models.Monday, "18:00-18:50", "Revision", true)

	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(t, db, dispatcher, mondayEvening, NotificationEngineOptions{})

	report, err := engine.RunUnfinishedWorkCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Evaluated)
	require.Equal(t, 1, report.Dispatched)

	sent := dispatcher.messages()
	require.Len(t, sent, 1)
	require.Equal(t, "kwame@example.com", sent[0].To)
}

func TestQuizScoreRoutingAndFraming(t *testing.T) {
	db := newTestDB(t)
	parent := seedUser(t, db, models.User{FirstName: "Ama", LastName: "Mensah", Email: "ama@example.com", Role: models.RoleParent})
	withParent := seedUser(t, db, models.User{FirstName: "Kofi", LastName: "Mensah", Email: "kofi@example.com", Role: models.RoleStudent, ParentID: &parent.ID})
	alone := seedUser(t, db, models.User{FirstName: "Esi", LastName: "Owusu", Email: "esi@example.com", Role: models.RoleStudent})

	now := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	seedCompletedQuiz(t, db, alone.ID, "Chemistry", 9, 20, now.Add(-10*time.Minute))
	seedCompletedQuiz(t, db, withParent.ID, "Physics", 17, 20, now.Add(-20*time.Minute))
	seedCompletedQuiz(t, db, withParent.ID, "History", 2, 20, now.Add(-2*time.Hour))

	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(t, db, dispatcher, now, NotificationEngineOptions{})

	report, err := engine.RunQuizScoreCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Evaluated)
	require.Equal(t, 2, report.Dispatched)

	sent := dispatcher.messages()
	require.Len(t, sent, 2)

	require.Equal(t, "ama@example.com", sent[0].To, "parent is preferred")
	require.Equal(t, "Quiz Score Notification - Kofi Mensah", sent[0].Subject)
	require.Contains(t, sent[0].Body, "85.0%")
	require.Contains(t, sent[0].Body, "Great job")

	require.Equal(t, "esi@example.com", sent[1].To, "student is the fallback")
	require.Equal(t, "Quiz Score Notification - Esi Owusu", sent[1].Subject)
	require.Contains(t, sent[1].Body, "45.0%")
	require.Contains(t, sent[1].Body, "Please review the material")
	require.NotContains(t, sent[1].Body, "Great job")
}

func TestSessionEndingWindow(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.User{FirstName: "Yaw", Email: "yaw@example.com", Role: models.RoleStudent})

	inWindow := seedSlot(t, db, student.ID, models.Monday, "18:00-18:50", "Revision", false)
	atUpperBound := seedSlot(t, db, student.ID, models.Monday, "18:40-18:52", "Study", false)
	seedSlot(t, db, student.ID, models.Monday, "18:30-18:42", "Revision", false)
	seedSlot(t, db, student.ID, models.Monday, "18:00-19:00", "Revision", false)
	seedSlot(t, db, student.ID, models.Monday, "18:30-18:50", "Break", false)
	seedSlot(t, db, student.ID, models.Monday, "18:10-18:50", "Revision", true)
	seedSlot(t, db, student.ID, models.Monday, "soon", "Revision", false)

	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(t, db, dispatcher, time.Date(2024, 3, 4, 18, 37, 0, 0, time.UTC), NotificationEngineOptions{})

	report, err := engine.RunSessionEndingCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Dispatched)
	require.Equal(t, 1, report.Skipped, "the unparseable range is skipped")

	sent := dispatcher.messages()
	require.Len(t, sent, 2)
	bodies := sent[0].Body + sent[1].Body
	require.Contains(t, bodies, "ends in 13 minutes")
	require.Contains(t, bodies, "ends in 15 minutes")
	require.True(t, strings.HasPrefix(sent[0].Subject, "Revision Session Ending Soon"))

	claimed, err := engine.deduper.Claim(context.Background(), dedupeKey(CheckSessionEnding, student.ID, uintString(inWindow.ID)), time.Minute)
	require.NoError(t, err)
	require.False(t, claimed)
	claimed, err = engine.deduper.Claim(context.Background(), dedupeKey(CheckSessionEnding, student.ID, uintString(atUpperBound.ID)), time.Minute)
	require.NoError(t, err)
	require.False(t, claimed)
}

func TestDispatchFailureIsCountedAndDoesNotAbort(t *testing.T) {
	db := newTestDB(t)
	first := seedUser(t, db, models.User{FirstName: "Kofi", Email: "kofi@example.com", Role: models.RoleStudent})
	second := seedUser(t, db, models.User{FirstName: "Esi", Email: "esi@example.com", Role: models.RoleStudent})
	seedSlot(t, db, first.ID, models.Monday, "18:00-18:50", "Revision", false)
	seedSlot(t, db, second.ID, models.Monday, "18:00-18:50", "Revision", false)

	dispatcher := &recordingDispatcher{reject: map[string]bool{"kofi@example.com": true}}
	engine := newTestEngine(t, db, dispatcher, mondayEvening, NotificationEngineOptions{})

	report, err := engine.RunUnfinishedWorkCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Dispatched)
	require.Equal(t, "esi@example.com", dispatcher.messages()[0].To)
}

func TestRunRejectsConcurrentRunOfSameCheck(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &recordingDispatcher{}, mondayEvening, NotificationEngineOptions{})

	engine.running[CheckQuizScores].Lock()
	_, err := engine.Run(context.Background(), CheckQuizScores)
	require.ErrorIs(t, err, ErrCheckInProgress)

	_, err = engine.Run(context.Background(), CheckSessionEnding)
	require.NoError(t, err, "other checks are independent")

	engine.running[CheckQuizScores].Unlock()
	_, err = engine.Run(context.Background(), CheckQuizScores)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), NotificationCheck("weekly_digest"))
	require.ErrorIs(t, err, ErrUnknownCheck)
}

type capturingPublisher struct {
	events []dto.NotificationEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event dto.NotificationEvent) error {
	p.events = append(p.events, event)
	return nil
}

func TestDispatchedNotificationsArePublished(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.User{FirstName: "Kofi", Email: "kofi@example.com", Role: models.RoleStudent})
	seedSlot(t, db, student.ID, models.Monday, "18:00-18:50", "Revision", false)

	publisher := &capturingPublisher{}
	engine := newTestEngine(t, db, &recordingDispatcher{}, mondayEvening, NotificationEngineOptions{Publisher: publisher})

	_, err := engine.RunUnfinishedWorkCheck(context.Background())
	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
	require.Equal(t, string(CheckUnfinishedWork), publisher.events[0].Check)
	require.Equal(t, student.ID, publisher.events[0].StudentID)
	require.Equal(t, "2024-03-04", publisher.events[0].TargetID)
	require.Equal(t, "student", publisher.events[0].Recipient)
}

func TestRedisDeduperSharesClaimsAcrossEngines(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := newTestDB(t)
	student := seedUser(t, db, models.User{FirstName: "Kofi", Email: "kofi@example.com", Role: models.RoleStudent})
	seedSlot(t, db, student.ID, models.Monday, "18:00-18:50", "Revision", false)

	dispatcher := &recordingDispatcher{}
	deduper := NewRedisDeduper(client, zerolog.Nop())
	first := newTestEngine(t, db, dispatcher, mondayEvening, NotificationEngineOptions{Deduper: deduper, DedupeTTL: time.Hour})
	second := newTestEngine(t, db, dispatcher, mondayEvening, NotificationEngineOptions{Deduper: deduper, DedupeTTL: time.Hour})

	_, err = first.RunUnfinishedWorkCheck(context.Background())
	require.NoError(t, err)
	_, err = second.RunUnfinishedWorkCheck(context.Background())
	require.NoError(t, err)
	require.Len(t, dispatcher.messages(), 1)

	key := dedupeKey(CheckUnfinishedWork, student.ID, "2024-03-04")
	require.True(t, mini.Exists(key))
	require.Equal(t, time.Hour, mini.TTL(key))
}

func TestMemoryDeduperExpiresClaims(t *testing.T) {
	current := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	deduper := newMemoryDeduper(func() time.Time { return current })
	ctx := context.Background()

	ok, err := deduper.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = deduper.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	current = current.Add(time.Minute)
	ok, err = deduper.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestParseNotificationCheck(t *testing.T) {
	check, err := ParseNotificationCheck("Session-Ending")
	require.NoError(t, err)
	require.Equal(t, CheckSessionEnding, check)

	check, err = ParseNotificationCheck(" quiz_scores ")
	require.NoError(t, err)
	require.Equal(t, CheckQuizScores, check)

	_, err = ParseNotificationCheck("digest")
	require.ErrorIs(t, err, ErrUnknownCheck)
}
