package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulfriend/internal/ai"
	"soulfriend/internal/config"
	"soulfriend/internal/db"
	"soulfriend/internal/events"
	"soulfriend/internal/model"
	"soulfriend/shared/reminders"
)

type fakeTelegram struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "soulfriend_test_bot"}
}

// texts returns the plain texts of all sent messages, oldest first.
func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeTelegram) lastText() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type nopFirer struct{}

func (nopFirer) Fire(reminders.Key, reminders.TimeOfDay) {}

func newTestBot(t *testing.T) (*Bot, *fakeTelegram) {
	t.Helper()
	logger := zerolog.Nop()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "bot.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	store := db.NewReminderStore(database)
	resolver := reminders.NewResolver(store, logger)
	scheduler := reminders.NewScheduler(store, resolver, nopFirer{}, nil, logger)
	t.Cleanup(scheduler.Stop)

	cfg := &config.Config{}
	cfg.Telegram.Admins = []int64{99}
	cfg.Limits.FreeGoals = 2
	cfg.Limits.FreeHabits = 2
	cfg.Limits.FreeMoodDaily = 1

	// Unreachable base URL keeps the companion on canned fallbacks.
	aiClient := ai.NewClient("http://127.0.0.1:1", "", "", logger)

	// Same audit subscriber production wires in main.
	bus := events.NewEventBus()
	bus.SubscribeAll(events.Types(), func(e events.Event) error {
		return database.LogAction(context.Background(), e.OwnerID, e.Type, e.Details)
	})

	tg := &fakeTelegram{}
	bot, err := NewWithTelegramClient(
		tg, cfg, database, scheduler, aiClient, nil,
		bus, config.DefaultTimezones(), logger)
	require.NoError(t, err)
	return bot, tg
}

func message(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

func TestOnboardingFlow(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/start"))
	assert.Contains(t, tg.lastText(), "What should I call you")

	bot.handleMessage(ctx, message(1, "Maya"))
	assert.Contains(t, tg.lastText(), "Maya")

	bot.handleMessage(ctx, message(1, "India"))

	profile, err := bot.db.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Maya", profile.Name)
	assert.Equal(t, "India", profile.Country)
	assert.True(t, profile.Onboarded)
}

func TestAddGoalFlowSchedulesReminders(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "Read 20 pages"))
	bot.handleMessage(ctx, message(1, "30"))
	bot.handleMessage(ctx, message(1, "08:00,20:00"))

	assert.Contains(t, tg.lastText(), "Read 20 pages")

	goals, err := bot.db.ListGoals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, []string{"08:00", "20:00"}, goals[0].ReminderTimes)
	assert.Equal(t, 2, bot.scheduler.RegistrationCount(1, reminders.TargetGoal, goals[0].ID))
}

func TestAddGoalSkipUsesDefaultTime(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "Stretch daily"))
	bot.handleMessage(ctx, message(1, "14"))

	bot.handleCallback(ctx, &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1},
		Message: message(1, ""),
		Data:    "skip",
	})

	goals, err := bot.db.ListGoals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, []string{"09:00"}, goals[0].ReminderTimes)
}

func TestGoalLimitForFreeUsers(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		bot.handleMessage(ctx, message(1, "/addgoal"))
		bot.handleMessage(ctx, message(1, "Goal"))
		bot.handleMessage(ctx, message(1, "10"))
		bot.handleMessage(ctx, message(1, "09:00"))
	}

	bot.handleMessage(ctx, message(1, "/addgoal"))
	assert.Contains(t, tg.lastText(), "free limit")

	// Premium lifts it.
	_, err := bot.db.ActivatePremium(ctx, 1, db.PremiumDemo)
	require.NoError(t, err)
	bot.handleMessage(ctx, message(1, "/addgoal"))
	assert.Contains(t, tg.lastText(), "What's the goal")
}

func TestGoalDoneCallbackCountsOncePerDay(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "Meditate"))
	bot.handleMessage(ctx, message(1, "30"))
	bot.handleMessage(ctx, message(1, "09:00"))

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1},
		Message: message(1, ""),
		Data:    "goal:done:1",
	}
	bot.handleCallback(ctx, cb)
	assert.Contains(t, tg.lastText(), "Day 1 of 30")

	bot.handleCallback(ctx, cb)
	assert.Contains(t, tg.lastText(), "Already counted")
}

func TestDeleteGoalCancelsReminders(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "Sleep by 23:00"))
	bot.handleMessage(ctx, message(1, "21"))
	bot.handleMessage(ctx, message(1, "22:30"))
	require.Equal(t, 1, bot.scheduler.RegistrationCount(1, reminders.TargetGoal, 1))

	bot.handleCallback(ctx, &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1},
		Message: message(1, ""),
		Data:    "goal:del:1",
	})

	goals, err := bot.db.ListGoals(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, goals)
	assert.Equal(t, 0, bot.scheduler.RegistrationCount(1, reminders.TargetGoal, 1))
}

func TestAddHabitFlow(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addhabit"))
	assert.Contains(t, tg.lastText(), "21 days")

	bot.handleMessage(ctx, message(1, "Morning walk"))
	bot.handleMessage(ctx, message(1, "07:15"))

	habits, err := bot.db.ListHabits(ctx, 1)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, "Morning walk", habits[0].Text)
	assert.Equal(t, 1, bot.scheduler.RegistrationCount(1, reminders.TargetHabit, habits[0].ID))
}

func TestTimezoneCallbackReschedules(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "Journal"))
	bot.handleMessage(ctx, message(1, "10"))
	bot.handleMessage(ctx, message(1, "09:00"))

	bot.handleCallback(ctx, &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1},
		Message: message(1, ""),
		Data:    "tz:Asia/Kolkata",
	})

	profile, err := bot.db.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", profile.Timezone)
	assert.Equal(t, 1, bot.scheduler.RegistrationCount(1, reminders.TargetGoal, 1))
	assert.True(t, anyContains(tg.texts(), "Asia/Kolkata"))
}

func TestEODSetAndOff(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/seteod"))
	bot.handleMessage(ctx, message(1, "21:30"))
	assert.Contains(t, tg.lastText(), "21:30")

	profile, err := bot.db.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "21:30", profile.EODTime)
	assert.Equal(t, 1, bot.scheduler.RegistrationCount(1, reminders.TargetEOD, 0))

	bot.handleMessage(ctx, message(1, "/seteod"))
	bot.handleMessage(ctx, message(1, "off"))

	profile, err = bot.db.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, profile.EODTime)
	assert.Equal(t, 0, bot.scheduler.RegistrationCount(1, reminders.TargetEOD, 0))
}

func TestMoodCheckLimit(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "💭 Mood Check"))
	bot.handleCallback(ctx, &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1},
		Message: message(1, ""),
		Data:    "mood:great",
	})
	bot.handleMessage(ctx, message(1, "slept well"))

	moods, err := bot.db.RecentMoods(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, moods, 1)
	assert.Equal(t, "great", moods[0].Mood)

	// Free tier allows one check per day in this config.
	bot.handleMessage(ctx, message(1, "💭 Mood Check"))
	assert.Contains(t, tg.lastText(), "mood checks for today")
}

func TestAdminCommandsAreGated(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/stats"))
	assert.Contains(t, tg.lastText(), "don't know that command")

	bot.handleMessage(ctx, message(99, "/stats"))
	assert.Contains(t, tg.lastText(), "Bot Stats")
}

func TestDomainEventsWriteAuditLog(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "Read nightly"))
	bot.handleMessage(ctx, message(1, "30"))
	bot.handleMessage(ctx, message(1, "09:00"))
	bot.handleMessage(ctx, message(1, "/goaldone 1"))

	rows, err := bot.db.QueryContext(ctx, `SELECT action FROM audit_log WHERE owner_id = 1`)
	require.NoError(t, err)
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var action string
		require.NoError(t, rows.Scan(&action))
		actions = append(actions, action)
	}
	require.NoError(t, rows.Err())
	assert.Contains(t, actions, events.GoalCreated)
	assert.Contains(t, actions, events.GoalCheckedIn)
}

func TestEditGoalTextFlow(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "Run"))
	bot.handleMessage(ctx, message(1, "30"))
	bot.handleMessage(ctx, message(1, "09:00"))

	bot.handleCallback(ctx, &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 1},
		Message: message(1, ""),
		Data:    "goal:etext:1",
	})
	bot.handleMessage(ctx, message(1, "Run 5k twice a week"))
	assert.Contains(t, tg.lastText(), "Run 5k twice a week")

	g, err := bot.db.GetGoal(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Run 5k twice a week", g.Text)
}

func TestEditGoalDaysFlipsStatusBothWays(t *testing.T) {
	bot, tg := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "Stretch"))
	bot.handleMessage(ctx, message(1, "30"))
	bot.handleMessage(ctx, message(1, "09:00"))
	bot.handleMessage(ctx, message(1, "/goaldone 1"))

	editDays := func(days string) {
		bot.handleCallback(ctx, &tgbotapi.CallbackQuery{
			ID:      "cb1",
			From:    &tgbotapi.User{ID: 1},
			Message: message(1, ""),
			Data:    "goal:edays:1",
		})
		bot.handleMessage(ctx, message(1, days))
	}

	// Lowering the target to the current streak completes the goal and
	// drops its reminders.
	editDays("1")
	assert.Contains(t, tg.lastText(), "already complete")
	g, err := bot.db.GetGoal(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, g.Status)
	assert.Equal(t, 0, bot.scheduler.RegistrationCount(1, reminders.TargetGoal, 1))

	// Raising it past the streak reopens the goal and restores them.
	editDays("10")
	assert.Contains(t, tg.lastText(), "10 days")
	g, err = bot.db.GetGoal(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, g.Status)
	assert.Equal(t, 1, bot.scheduler.RegistrationCount(1, reminders.TargetGoal, 1))
}

func TestCancelResetsFlow(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, message(1, "/addgoal"))
	bot.handleMessage(ctx, message(1, "/cancel"))

	st := bot.state.get(1)
	assert.Equal(t, stepNone, st.Step)
}

func anyContains(texts []string, substr string) bool {
	for _, t := range texts {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}
