package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"soulfriend/internal/ai"
	"soulfriend/internal/config"
	"soulfriend/internal/db"
	"soulfriend/internal/events"
	"soulfriend/internal/metrics"
	"soulfriend/shared/export"
	"soulfriend/shared/reminders"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Bot wires Telegram updates to the goal, habit and reminder machinery.
type Bot struct {
	tg        telegramClient
	db        *db.DB
	scheduler *reminders.Scheduler
	ai        *ai.Client
	exporter  *export.Service
	bus       *events.EventBus
	cfg       *config.Config
	timezones []config.TimezoneOption
	state     *stateStore
	logger    zerolog.Logger
}

// New builds the bot on top of an already authorized API client. The same
// client also backs the reminder notifier, so both share one rate-limited
// connection.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	database *db.DB,
	scheduler *reminders.Scheduler,
	aiClient *ai.Client,
	exporter *export.Service,
	bus *events.EventBus,
	timezones []config.TimezoneOption,
	logger zerolog.Logger,
) (*Bot, error) {
	return NewWithTelegramClient(&realTelegramClient{api: api}, cfg, database, scheduler, aiClient, exporter, bus, timezones, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(
	tg telegramClient,
	cfg *config.Config,
	database *db.DB,
	scheduler *reminders.Scheduler,
	aiClient *ai.Client,
	exporter *export.Service,
	bus *events.EventBus,
	timezones []config.TimezoneOption,
	logger zerolog.Logger,
) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	return &Bot{
		tg:        tg,
		db:        database,
		scheduler: scheduler,
		ai:        aiClient,
		exporter:  exporter,
		bus:       bus,
		cfg:       cfg,
		timezones: timezones,
		state:     newStateStore(),
		logger:    logger.With().Str("component", "bot").Logger(),
	}, nil
}

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("🎯 My Goals"),
		tgbotapi.NewKeyboardButton("🔄 My Habits"),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("💭 Mood Check"),
		tgbotapi.NewKeyboardButton("🏆 My Badges"),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("💬 Talk to Me"),
		tgbotapi.NewKeyboardButton("ℹ️ Help"),
	),
)

// Start begins polling updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Str("text", update.Message.Text).
			Msg("handling message")
		b.handleMessage(ctx, update.Message)
		return
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	_ = b.db.EnsureUser(ctx, userID)
	_ = b.db.TouchActivity(ctx, userID)

	// Commands interrupt any active flow.
	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return
	}

	switch text {
	case "🎯 My Goals":
		b.handleGoalList(ctx, chatID, userID)
		return
	case "🔄 My Habits":
		b.handleHabitList(ctx, chatID, userID)
		return
	case "💭 Mood Check":
		b.startMoodCheck(ctx, chatID, userID)
		return
	case "🏆 My Badges":
		b.handleBadges(ctx, chatID, userID)
		return
	case "💬 Talk to Me":
		b.state.get(userID).Step = stepChat
		b.reply(chatID, "I'm all ears. What's on your mind?")
		return
	case "ℹ️ Help":
		b.sendHelp(chatID)
		return
	}

	b.handleFlowInput(ctx, msg, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, text string) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	command := text
	if idx := strings.IndexAny(command, " @"); idx > 0 {
		command = command[:idx]
	}
	metrics.IncCommandHandled(strings.TrimPrefix(command, "/"))

	switch {
	case command == "/start":
		b.state.reset(userID)
		b.handleStart(ctx, chatID, userID)
	case command == "/menu":
		b.state.reset(userID)
		b.sendMainMenu(chatID)
	case command == "/help":
		b.sendHelp(chatID)
	case command == "/cancel":
		b.state.reset(userID)
		b.reply(chatID, "Okay, cancelled.")
		b.sendMainMenu(chatID)
	case command == "/goals":
		b.handleGoalList(ctx, chatID, userID)
	case command == "/addgoal":
		b.startAddGoal(ctx, chatID, userID)
	case command == "/goalinfo":
		b.handleGoalInfo(ctx, chatID, userID, commandArg(text))
	case command == "/goaldone":
		b.handleGoalDoneCommand(ctx, chatID, userID, commandArg(text))
	case command == "/habits":
		b.handleHabitList(ctx, chatID, userID)
	case command == "/addhabit":
		b.startAddHabit(ctx, chatID, userID)
	case command == "/habitinfo":
		b.handleHabitInfo(ctx, chatID, userID, commandArg(text))
	case command == "/habitdone":
		b.handleHabitDoneCommand(ctx, chatID, userID, commandArg(text))
	case command == "/settimezone":
		b.handleSetTimezone(chatID)
	case command == "/seteod":
		b.startSetEOD(chatID, userID)
	case command == "/boost":
		b.handleBoost(ctx, chatID, userID, commandArg(text))
	case command == "/premium":
		b.handlePremium(ctx, chatID, userID)
	case command == "/activatedemo":
		b.handleActivateDemo(ctx, chatID, userID)
	case command == "/stats" && b.cfg.IsAdmin(userID):
		b.handleAdminStats(ctx, chatID)
	case command == "/export" && b.cfg.IsAdmin(userID):
		b.handleAdminExport(ctx, chatID)
	default:
		b.reply(chatID, "I don't know that command. Try /help.")
	}
}

// handleFlowInput routes non-command text through the user's active flow.
func (b *Bot) handleFlowInput(ctx context.Context, msg *tgbotapi.Message, text string) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	st := b.state.get(userID)

	switch st.Step {
	case stepName:
		b.handleNameInput(ctx, chatID, userID, st, text)
	case stepCountry:
		b.handleCountryInput(ctx, chatID, userID, st, text)
	case stepGoalText:
		b.handleGoalTextInput(chatID, st, text)
	case stepGoalDays:
		b.handleGoalDaysInput(chatID, st, text)
	case stepGoalTimes:
		b.handleGoalTimesInput(ctx, chatID, userID, st, text)
	case stepHabitText:
		b.handleHabitTextInput(chatID, st, text)
	case stepHabitTimes:
		b.handleHabitTimesInput(ctx, chatID, userID, st, text)
	case stepEditTimes:
		b.handleEditTimesInput(ctx, chatID, userID, st, text)
	case stepEditGoalText:
		b.handleEditGoalTextInput(ctx, chatID, userID, st, text)
	case stepEditGoalDays:
		b.handleEditGoalDaysInput(ctx, chatID, userID, st, text)
	case stepEODTime:
		b.handleEODTimeInput(ctx, chatID, userID, st, text)
	case stepMoodNote:
		b.handleMoodNoteInput(ctx, chatID, userID, st, text)
	case stepChat:
		b.reply(chatID, b.ai.Chat(ctx, text))
	default:
		// Unprompted free text goes to the companion too.
		b.reply(chatID, b.ai.Chat(ctx, text))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	_ = b.answerCallback(cq.ID)

	action, err := parseCallback(cq.Data)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("data", cq.Data).Err(err).Msg("bad callback payload")
		return
	}

	userID := cq.From.ID
	chatID := cq.Message.Chat.ID

	switch action.Verb {
	case actionNoop:
	case actionCancel:
		b.state.reset(userID)
		b.reply(chatID, "Okay, cancelled.")
	case actionGoalDone:
		b.completeGoal(ctx, chatID, userID, action.ItemID)
	case actionGoalDelete:
		b.deleteGoal(ctx, chatID, userID, action.ItemID)
	case actionGoalEdit:
		b.sendGoalEditMenu(chatID, action.ItemID)
	case actionGoalEditText:
		b.startEditGoalText(chatID, userID, action.ItemID)
	case actionGoalEditDays:
		b.startEditGoalDays(chatID, userID, action.ItemID)
	case actionGoalEditTimes:
		b.startEditTimes(chatID, userID, "goal", action.ItemID)
	case actionGoalInfo:
		b.sendGoalInfo(ctx, chatID, userID, action.ItemID)
	case actionHabitDone:
		b.completeHabit(ctx, chatID, userID, action.ItemID)
	case actionHabitDelete:
		b.deleteHabit(ctx, chatID, userID, action.ItemID)
	case actionHabitEdit:
		b.startEditTimes(chatID, userID, "habit", action.ItemID)
	case actionHabitInfo:
		b.sendHabitInfo(ctx, chatID, userID, action.ItemID)
	case actionTimezone:
		b.applyTimezone(ctx, chatID, userID, action.Value)
	case actionMood:
		b.handleMoodPick(ctx, chatID, userID, action.Value)
	case actionPremiumPlan:
		b.handlePremiumPlan(ctx, chatID, userID, action.Value)
	case actionSkipReminder:
		b.handleSkipReminders(ctx, chatID, userID)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID, userID int64) {
	profile, err := b.db.GetProfile(ctx, userID)
	if err == nil && profile.Onboarded {
		b.reply(chatID, fmt.Sprintf("Welcome back, %s! 🌟", profile.Name))
		b.sendMainMenu(chatID)
		return
	}

	b.state.get(userID).Step = stepName
	b.reply(chatID, "Hi! I'm your companion for goals, habits and everything in between. 🌱\n\nWhat should I call you?")
}

func (b *Bot) handleNameInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	if text == "" {
		b.reply(chatID, "A name, even a nickname, helps me talk to you. What should I call you?")
		return
	}
	if err := b.db.SetName(ctx, userID, text); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	st.Step = stepCountry
	b.reply(chatID, fmt.Sprintf("Nice to meet you, %s! Which country are you in? (This helps with timezones.)", text))
}

func (b *Bot) handleCountryInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	if err := b.db.SetCountry(ctx, userID, text); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if err := b.db.SetOnboarded(ctx, userID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	st.Step = stepNone
	b.reply(chatID, "All set! Now pick your timezone so reminders arrive at the right local time.")
	b.handleSetTimezone(chatID)
}

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "What would you like to do?")
	msg.ReplyMarkup = mainMenu
	_, _ = b.tg.Send(msg)
}

func (b *Bot) sendHelp(chatID int64) {
	b.reply(chatID, `Here's what I can do:

🎯 *Goals*
/goals - list your goals
/addgoal - create a goal
/goaldone N - check in on goal N
/goalinfo N - goal details

🔄 *Habits* (21-day challenges)
/habits - list your habits
/addhabit - start a habit
/habitdone N - complete habit N for today

⚙️ *Settings*
/settimezone - set your timezone
/seteod - daily summary time (or "off")

✨ *More*
/boost N - a motivation boost for goal N
/premium - premium plans
/cancel - abort the current step`)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Int64("chat_id", chatID).Err(err).Msg("send failed")
	}
}

func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Msg("handler failed")
	b.reply(chatID, "Something went wrong on my side. Please try again.")
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

// commandArg returns the first argument after the command, "" if none.
func commandArg(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func parseItemID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item number %q", arg)
	}
	return id, nil
}

// localToday returns the owner's current local date for check-ins.
func (b *Bot) localToday(ctx context.Context, userID int64) string {
	zone := "UTC"
	if profile, err := b.db.GetProfile(ctx, userID); err == nil && profile.Timezone != "" {
		zone = profile.Timezone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	return time.Now().In(loc).Format("2006-01-02")
}
